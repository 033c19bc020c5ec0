package model

import (
	"time"

	"gorm.io/gorm"
)

// ==================== Dealer 经销商 ====================

// DealerStatus 经销商状态
const (
	DealerStatusInactive = 0 // 停用（保留历史数据，不再同步）
	DealerStatusActive   = 1 // 正常
)

// Dealer 经销商主档
// 每个经销商对应一套独立的后台系统，通过统一网关拉取数据
type Dealer struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	DealerID string `gorm:"size:32;uniqueIndex;not null" json:"dealer_id"` // 外部经销商代码
	Name     string `gorm:"size:255" json:"name"`
	Region   string `gorm:"size:64" json:"region"`

	// 鉴权三元组
	ApiKey    string `gorm:"size:128;not null" json:"-"`
	ApiToken  string `gorm:"size:512;not null" json:"-"`
	SecretKey string `gorm:"size:128;not null" json:"-"`

	// 使用的 API 配置（为空时使用 default 配置）
	ConfigName string `gorm:"size:64;default:default" json:"config_name"`

	Status int `gorm:"default:1;index" json:"status"`

	// 审计字段
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (*Dealer) TableName() string {
	return "dealers"
}

// IsActive 是否允许同步
func (d *Dealer) IsActive() bool {
	return d.Status == DealerStatusActive
}

// ==================== ApiConfiguration API 配置 ====================

// ApiConfiguration 外部网关配置
// 多个经销商共享一套配置，个别经销商可通过 ConfigName 指定覆盖配置
type ApiConfiguration struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"size:64;uniqueIndex;not null" json:"name" validate:"required"`
	BaseURL string `gorm:"size:255;not null" json:"base_url" validate:"required,url"`

	// 单次 HTTP 调用超时（秒）
	TimeoutSeconds int `gorm:"default:30" json:"timeout_seconds" validate:"gte=1,lte=300"`
	// 瞬时失败的重试预算
	RetryAttempts int `gorm:"default:3" json:"retry_attempts" validate:"gte=0,lte=10"`
	// 单页记录数
	PageLimit int `gorm:"default:100" json:"page_limit" validate:"gte=1,lte=1000"`
	// 单次 run 的总体超时（分钟）
	RunTimeoutMinutes int `gorm:"default:10" json:"run_timeout_minutes" validate:"gte=1,lte=120"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*ApiConfiguration) TableName() string {
	return "api_configurations"
}

// Timeout 单次调用超时
func (c *ApiConfiguration) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RunTimeout 单次 run 总体超时
func (c *ApiConfiguration) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMinutes) * time.Minute
}
