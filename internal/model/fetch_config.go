package model

import (
	"time"
)

// ==================== FetchConfiguration 抓取调度配置 ====================

// ScheduleType 调度类型
const (
	ScheduleTypeInterval = "interval" // 固定间隔
	ScheduleTypeCron     = "cron"     // cron 表达式
)

// FetchConfiguration 每个 (经销商, 模块) 一条激活的调度配置
// next_fetch_at 采用租约模式：调度器受理后立即预推，防止重复派发
type FetchConfiguration struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID   string `gorm:"size:32;not null;uniqueIndex:uk_fetch_dealer_module" json:"dealer_id"`
	ModuleCode string `gorm:"size:32;not null;uniqueIndex:uk_fetch_dealer_module" json:"module_code"`

	// 调度设置
	ScheduleType    string `gorm:"size:16;default:interval" json:"schedule_type"`
	IntervalMinutes int    `gorm:"default:60" json:"interval_minutes"`
	CronExpression  string `gorm:"size:64" json:"cron_expression"`

	// 调度状态
	LastFetchAt *time.Time `json:"last_fetch_at"`
	NextFetchAt *time.Time `gorm:"index" json:"next_fetch_at"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`

	// 退避状态（显式落库，进程重启不丢失）
	ConsecutiveFailures int        `gorm:"default:0" json:"consecutive_failures"`
	BackoffUntil        *time.Time `json:"backoff_until"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*FetchConfiguration) TableName() string {
	return "fetch_configurations"
}

// Interval 固定间隔
func (c *FetchConfiguration) Interval() time.Duration {
	minutes := c.IntervalMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}
