package dto

import "time"

// ================== Dealer DTO ==================

// DealerCreateReq 新增经销商请求
type DealerCreateReq struct {
	DealerID   string `json:"dealer_id" binding:"required,max=32"`
	Name       string `json:"name" binding:"required,max=255"`
	Region     string `json:"region" binding:"max=64"`
	ApiKey     string `json:"api_key" binding:"required"`
	ApiToken   string `json:"api_token" binding:"required"`
	SecretKey  string `json:"secret_key" binding:"required"`
	ConfigName string `json:"config_name"`
}

// DealerListReq 经销商列表请求
type DealerListReq struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   int    `form:"status,default=-1"`
	Region   string `form:"region"`
	Keyword  string `form:"keyword"`
}

// DealerResp 经销商响应（凭证字段不出网）
type DealerResp struct {
	ID         int64     `json:"id"`
	DealerID   string    `json:"dealer_id"`
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	ConfigName string    `json:"config_name"`
	Status     int       `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ================== Schedule DTO ==================

// ScheduleUpsertReq 新建或调整调度配置请求
type ScheduleUpsertReq struct {
	DealerID        string `json:"dealer_id" binding:"required"`
	ModuleCode      string `json:"module_code" binding:"required"`
	ScheduleType    string `json:"schedule_type" binding:"omitempty,oneof=interval cron"`
	IntervalMinutes int    `json:"interval_minutes" binding:"omitempty,gte=1,lte=1440"`
	CronExpression  string `json:"cron_expression"`
	IsActive        *bool  `json:"is_active"`
}

// ScheduleResp 调度配置响应
type ScheduleResp struct {
	DealerID            string     `json:"dealer_id"`
	ModuleCode          string     `json:"module_code"`
	ScheduleType        string     `json:"schedule_type"`
	IntervalMinutes     int        `json:"interval_minutes"`
	CronExpression      string     `json:"cron_expression,omitempty"`
	LastFetchAt         *time.Time `json:"last_fetch_at"`
	NextFetchAt         *time.Time `json:"next_fetch_at"`
	IsActive            bool       `json:"is_active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	BackoffUntil        *time.Time `json:"backoff_until,omitempty"`
}

// ================== Run DTO ==================

// TriggerSyncResp 手动触发响应
type TriggerSyncResp struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	RecordsFetched   int    `json:"records_fetched"`
	RecordsNew       int    `json:"records_new"`
	RecordsDuplicate int    `json:"records_duplicate"`
	RecordsUpdated   int    `json:"records_updated"`
	RecordsFailed    int    `json:"records_failed"`
	DurationMs       int64  `json:"duration_ms"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// FetchLogListReq 抓取日志列表请求
type FetchLogListReq struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	DealerID   string `form:"dealer_id"`
	ModuleCode string `form:"module_code"`
	Status     string `form:"status"`
	StartDate  string `form:"start_date"` // 2006-01-02
	EndDate    string `form:"end_date"`
}
