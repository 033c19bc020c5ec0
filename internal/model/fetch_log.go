package model

import (
	"time"
)

// ==================== FetchLog 抓取日志 ====================

// FetchStatus 单次 run 的结果状态
const (
	FetchStatusSuccess = "success" // 全部记录入库成功
	FetchStatusPartial = "partial" // 部分记录被拒绝
	FetchStatusFailed  = "failed"  // 抓取阶段失败，无记录入库
)

// FetchLog 一次 run 的不可变日志
// 只写入，永不更新；运维和退避决策都依赖这张表
type FetchLog struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	DealerID   string `gorm:"size:32;index:idx_fetch_log_pair;not null" json:"dealer_id"`
	ModuleCode string `gorm:"size:32;index:idx_fetch_log_pair;not null" json:"module_code"`

	Status string `gorm:"size:16;index;not null" json:"status"`

	// 计数
	RecordsFetched   int `gorm:"default:0" json:"records_fetched"`
	RecordsNew       int `gorm:"default:0" json:"records_new"`
	RecordsDuplicate int `gorm:"default:0" json:"records_duplicate"`
	RecordsUpdated   int `gorm:"default:0" json:"records_updated"`
	RecordsFailed    int `gorm:"default:0" json:"records_failed"`

	// 拉取窗口
	WindowStart *time.Time `json:"window_start"`
	WindowEnd   *time.Time `json:"window_end"`

	DurationMs   int64  `gorm:"default:0" json:"duration_ms"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	StartedAt  time.Time `gorm:"index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (*FetchLog) TableName() string {
	return "fetch_logs"
}

// IsFailure 是否计入连续失败
func (l *FetchLog) IsFailure() bool {
	return l.Status == FetchStatusFailed
}
