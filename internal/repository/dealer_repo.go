package repository

import (
	"context"
	"fmt"

	"dms_sync_v1_202608/internal/model"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// ==================== 过滤条件 ====================

// DealerFilter 经销商过滤条件
type DealerFilter struct {
	Status   *int
	Region   string
	Keyword  string
	Page     int
	PageSize int
}

// ==================== DealerRepository 经销商仓库 ====================

// DealerRepository 经销商仓库接口
type DealerRepository interface {
	Create(ctx context.Context, dealer *model.Dealer) error
	GetByID(ctx context.Context, id int64) (*model.Dealer, error)
	GetByDealerID(ctx context.Context, dealerID string) (*model.Dealer, error)
	ListActive(ctx context.Context) ([]model.Dealer, error)
	List(ctx context.Context, filter DealerFilter) ([]model.Dealer, int64, error)
	Update(ctx context.Context, dealer *model.Dealer) error
	UpdateStatus(ctx context.Context, dealerID string, status int) error
}

type dealerRepository struct {
	db *gorm.DB
}

// NewDealerRepository 创建经销商仓库
func NewDealerRepository(db *gorm.DB) DealerRepository {
	return &dealerRepository{db: db}
}

func (r *dealerRepository) Create(ctx context.Context, dealer *model.Dealer) error {
	return r.db.WithContext(ctx).Create(dealer).Error
}

func (r *dealerRepository) GetByID(ctx context.Context, id int64) (*model.Dealer, error) {
	var dealer model.Dealer
	err := r.db.WithContext(ctx).First(&dealer, id).Error
	if err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *dealerRepository) GetByDealerID(ctx context.Context, dealerID string) (*model.Dealer, error) {
	var dealer model.Dealer
	err := r.db.WithContext(ctx).Where("dealer_id = ?", dealerID).First(&dealer).Error
	if err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *dealerRepository) ListActive(ctx context.Context) ([]model.Dealer, error) {
	var dealers []model.Dealer
	err := r.db.WithContext(ctx).
		Where("status = ?", model.DealerStatusActive).
		Order("dealer_id ASC").
		Find(&dealers).Error
	return dealers, err
}

func (r *dealerRepository) List(ctx context.Context, filter DealerFilter) ([]model.Dealer, int64, error) {
	var dealers []model.Dealer
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Dealer{})

	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Region != "" {
		db = db.Where("region = ?", filter.Region)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("dealer_id LIKE ? OR name LIKE ?", keyword, keyword)
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
		Order("dealer_id ASC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&dealers).Error

	return dealers, total, err
}

func (r *dealerRepository) Update(ctx context.Context, dealer *model.Dealer) error {
	return r.db.WithContext(ctx).Save(dealer).Error
}

func (r *dealerRepository) UpdateStatus(ctx context.Context, dealerID string, status int) error {
	return r.db.WithContext(ctx).Model(&model.Dealer{}).
		Where("dealer_id = ?", dealerID).
		Update("status", status).Error
}

// ==================== ApiConfigRepository API 配置仓库 ====================

// ApiConfigRepository API 配置仓库接口
type ApiConfigRepository interface {
	GetByName(ctx context.Context, name string) (*model.ApiConfiguration, error)
	Save(ctx context.Context, cfg *model.ApiConfiguration) error
	EnsureDefault(ctx context.Context, baseURL string) error
}

type apiConfigRepository struct {
	db *gorm.DB
}

// NewApiConfigRepository 创建 API 配置仓库
func NewApiConfigRepository(db *gorm.DB) ApiConfigRepository {
	return &apiConfigRepository{db: db}
}

func (r *apiConfigRepository) GetByName(ctx context.Context, name string) (*model.ApiConfiguration, error) {
	var cfg model.ApiConfiguration
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save 校验后落库，超时、分页这些参数配错会让所有同步悄悄变慢
func (r *apiConfigRepository) Save(ctx context.Context, cfg *model.ApiConfiguration) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("API 配置校验失败: %w", err)
	}
	return r.db.WithContext(ctx).Save(cfg).Error
}

// EnsureDefault 启动时确保 default 配置存在
func (r *apiConfigRepository) EnsureDefault(ctx context.Context, baseURL string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ApiConfiguration{}).
		Where("name = ?", "default").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&model.ApiConfiguration{
		Name:              "default",
		BaseURL:           baseURL,
		TimeoutSeconds:    30,
		RetryAttempts:     3,
		PageLimit:         100,
		RunTimeoutMinutes: 10,
	}).Error
}
