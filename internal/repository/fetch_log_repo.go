package repository

import (
	"context"
	"time"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== 过滤条件 ====================

// FetchLogFilter 抓取日志过滤条件
type FetchLogFilter struct {
	DealerID   string
	ModuleCode string
	Status     string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	PageSize   int
}

// FetchLogStats 抓取日志统计
type FetchLogStats struct {
	TotalRuns   int64
	SuccessRuns int64
	PartialRuns int64
	FailedRuns  int64
}

// ==================== FetchLogRepository 抓取日志仓库 ====================

// FetchLogRepository 抓取日志仓库接口
// 日志只追加，永不更新
type FetchLogRepository interface {
	Create(ctx context.Context, fetchLog *model.FetchLog) error
	GetByRunID(ctx context.Context, runID string) (*model.FetchLog, error)
	List(ctx context.Context, filter FetchLogFilter) ([]model.FetchLog, int64, error)
	GetLatest(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error)
	GetStats(ctx context.Context, dealerID string, since time.Time) (*FetchLogStats, error)
}

type fetchLogRepository struct {
	db *gorm.DB
}

// NewFetchLogRepository 创建抓取日志仓库
func NewFetchLogRepository(db *gorm.DB) FetchLogRepository {
	return &fetchLogRepository{db: db}
}

func (r *fetchLogRepository) Create(ctx context.Context, fetchLog *model.FetchLog) error {
	return r.db.WithContext(ctx).Create(fetchLog).Error
}

func (r *fetchLogRepository) GetByRunID(ctx context.Context, runID string) (*model.FetchLog, error) {
	var fetchLog model.FetchLog
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&fetchLog).Error
	if err != nil {
		return nil, err
	}
	return &fetchLog, nil
}

func (r *fetchLogRepository) List(ctx context.Context, filter FetchLogFilter) ([]model.FetchLog, int64, error) {
	var logs []model.FetchLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.FetchLog{})

	if filter.DealerID != "" {
		db = db.Where("dealer_id = ?", filter.DealerID)
	}
	if filter.ModuleCode != "" {
		db = db.Where("module_code = ?", filter.ModuleCode)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		db = db.Where("started_at >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("started_at <= ?", filter.EndDate)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	err := db.
		Order("started_at DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&logs).Error

	return logs, total, err
}

// GetLatest 取某 (经销商, 模块) 最近一次 run
func (r *fetchLogRepository) GetLatest(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error) {
	var fetchLog model.FetchLog
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND module_code = ?", dealerID, moduleCode).
		Order("started_at DESC").
		First(&fetchLog).Error
	if err != nil {
		return nil, err
	}
	return &fetchLog, nil
}

func (r *fetchLogRepository) GetStats(ctx context.Context, dealerID string, since time.Time) (*FetchLogStats, error) {
	var stats FetchLogStats

	db := r.db.WithContext(ctx).Model(&model.FetchLog{}).Where("started_at >= ?", since)
	if dealerID != "" {
		db = db.Where("dealer_id = ?", dealerID)
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := db.Select("status, COUNT(*) as count").Group("status").Scan(&counts).Error; err != nil {
		return nil, err
	}

	for _, c := range counts {
		stats.TotalRuns += c.Count
		switch c.Status {
		case model.FetchStatusSuccess:
			stats.SuccessRuns = c.Count
		case model.FetchStatusPartial:
			stats.PartialRuns = c.Count
		case model.FetchStatusFailed:
			stats.FailedRuns = c.Count
		}
	}

	return &stats, nil
}
