package repository

import (
	"context"
	"time"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== FetchConfigRepository 调度配置仓库 ====================

// 退避策略常量
const (
	// 连续失败达到该次数后开始指数退避
	BackoffThreshold = 3
	// 退避上限
	MaxBackoff = 6 * time.Hour
)

// FetchConfigRepository 调度配置仓库接口
// next_fetch_at 的推进使用条件更新（CAS），多实例部署也不会重复派发
type FetchConfigRepository interface {
	Create(ctx context.Context, cfg *model.FetchConfiguration) error
	Update(ctx context.Context, cfg *model.FetchConfiguration) error
	GetByPair(ctx context.Context, dealerID, moduleCode string) (*model.FetchConfiguration, error)
	List(ctx context.Context, dealerID string) ([]model.FetchConfiguration, error)
	ListDue(ctx context.Context, now time.Time) ([]model.FetchConfiguration, error)
	Lease(ctx context.Context, cfg *model.FetchConfiguration, nextFetchAt time.Time) (bool, error)
	MarkSuccess(ctx context.Context, dealerID, moduleCode string, startedAt time.Time) error
	MarkFailure(ctx context.Context, dealerID, moduleCode string, startedAt, now time.Time) (time.Duration, error)
	SetActive(ctx context.Context, dealerID, moduleCode string, active bool) error
}

type fetchConfigRepository struct {
	db *gorm.DB
}

// NewFetchConfigRepository 创建调度配置仓库
func NewFetchConfigRepository(db *gorm.DB) FetchConfigRepository {
	return &fetchConfigRepository{db: db}
}

func (r *fetchConfigRepository) Create(ctx context.Context, cfg *model.FetchConfiguration) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *fetchConfigRepository) Update(ctx context.Context, cfg *model.FetchConfiguration) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *fetchConfigRepository) GetByPair(ctx context.Context, dealerID, moduleCode string) (*model.FetchConfiguration, error) {
	var cfg model.FetchConfiguration
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND module_code = ?", dealerID, moduleCode).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *fetchConfigRepository) List(ctx context.Context, dealerID string) ([]model.FetchConfiguration, error) {
	var cfgs []model.FetchConfiguration
	db := r.db.WithContext(ctx).Model(&model.FetchConfiguration{})
	if dealerID != "" {
		db = db.Where("dealer_id = ?", dealerID)
	}
	err := db.Order("dealer_id ASC, module_code ASC").Find(&cfgs).Error
	return cfgs, err
}

// ListDue 查询到期的调度配置
// next_fetch_at 为 NULL 的新配置视为立即到期
func (r *fetchConfigRepository) ListDue(ctx context.Context, now time.Time) ([]model.FetchConfiguration, error) {
	var cfgs []model.FetchConfiguration
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_fetch_at IS NULL OR next_fetch_at <= ?", now).
		Order("next_fetch_at ASC").
		Find(&cfgs).Error
	return cfgs, err
}

// Lease 租约式预推 next_fetch_at
// 条件更新：只有 next_fetch_at 仍等于读到的值时才推进，返回 false 表示
// 已被其他调度实例（或同实例的上一个 tick）抢走
func (r *fetchConfigRepository) Lease(ctx context.Context, cfg *model.FetchConfiguration, nextFetchAt time.Time) (bool, error) {
	db := r.db.WithContext(ctx).Model(&model.FetchConfiguration{}).
		Where("id = ? AND is_active = ?", cfg.ID, true)

	if cfg.NextFetchAt == nil {
		db = db.Where("next_fetch_at IS NULL")
	} else {
		db = db.Where("next_fetch_at = ?", *cfg.NextFetchAt)
	}

	result := db.Update("next_fetch_at", nextFetchAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkSuccess run 成功（含 partial）后推进 last_fetch_at 并清空退避状态
func (r *fetchConfigRepository) MarkSuccess(ctx context.Context, dealerID, moduleCode string, startedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.FetchConfiguration{}).
		Where("dealer_id = ? AND module_code = ?", dealerID, moduleCode).
		Updates(map[string]interface{}{
			"last_fetch_at":        startedAt,
			"consecutive_failures": 0,
			"backoff_until":        nil,
		}).Error
}

// MarkFailure run 失败后累计连续失败次数
// 达到阈值后按 interval * 2^(n-threshold+1) 指数退避 next_fetch_at，封顶 MaxBackoff
// 失败不推进 last_fetch_at，下一次 run 仍覆盖同一窗口
func (r *fetchConfigRepository) MarkFailure(ctx context.Context, dealerID, moduleCode string, startedAt, now time.Time) (time.Duration, error) {
	var backoff time.Duration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg model.FetchConfiguration
		if err := tx.Where("dealer_id = ? AND module_code = ?", dealerID, moduleCode).
			First(&cfg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"consecutive_failures": cfg.ConsecutiveFailures + 1,
		}

		failures := cfg.ConsecutiveFailures + 1
		if failures >= BackoffThreshold {
			// 逐级翻倍到封顶为止，长时间故障下大位移会溢出成负数
			backoff = cfg.Interval()
			for i := 0; i < failures-BackoffThreshold+1 && backoff < MaxBackoff; i++ {
				backoff <<= 1
			}
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			until := now.Add(backoff)
			updates["backoff_until"] = until

			// 只把 next_fetch_at 往后推，不提前
			if cfg.NextFetchAt == nil || cfg.NextFetchAt.Before(until) {
				updates["next_fetch_at"] = until
			}
		}

		return tx.Model(&model.FetchConfiguration{}).
			Where("id = ?", cfg.ID).
			Updates(updates).Error
	})

	return backoff, err
}

func (r *fetchConfigRepository) SetActive(ctx context.Context, dealerID, moduleCode string, active bool) error {
	return r.db.WithContext(ctx).Model(&model.FetchConfiguration{}).
		Where("dealer_id = ? AND module_code = ?", dealerID, moduleCode).
		Update("is_active", active).Error
}
