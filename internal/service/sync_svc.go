package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/module"
	"dms_sync_v1_202608/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 首次同步（last_fetch_at 为空）时的默认回溯窗口
const defaultLookback = 24 * time.Hour

// ==================== SyncService 同步服务 ====================

// SyncService 同步服务接口
// 一次 RunSync 即一次 run：拉取 -> 规范化 -> 合并 -> 落日志
type SyncService interface {
	// RunSync 执行一次同步并返回不可变的 run 日志
	// 返回的 error 仅表示流程级失败（经销商不存在、配置缺失等）；
	// 抓取失败会生成 status=failed 的 FetchLog，此时 error 为 nil
	RunSync(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error)
}

type syncService struct {
	db              *gorm.DB
	dealerRepo      repository.DealerRepository
	apiConfigRepo   repository.ApiConfigRepository
	fetchConfigRepo repository.FetchConfigRepository
	fetchLogRepo    repository.FetchLogRepository
	fetchSvc        FetchService
}

// NewSyncService 创建同步服务
func NewSyncService(
	db *gorm.DB,
	dealerRepo repository.DealerRepository,
	apiConfigRepo repository.ApiConfigRepository,
	fetchConfigRepo repository.FetchConfigRepository,
	fetchLogRepo repository.FetchLogRepository,
	fetchSvc FetchService,
) SyncService {
	return &syncService{
		db:              db,
		dealerRepo:      dealerRepo,
		apiConfigRepo:   apiConfigRepo,
		fetchConfigRepo: fetchConfigRepo,
		fetchLogRepo:    fetchLogRepo,
		fetchSvc:        fetchSvc,
	}
}

// RunSync 执行一次同步
func (s *syncService) RunSync(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error) {
	desc, err := module.Get(moduleCode)
	if err != nil {
		return nil, err
	}

	dealer, err := s.dealerRepo.GetByDealerID(ctx, dealerID)
	if err != nil {
		return nil, fmt.Errorf("加载经销商 %s 失败: %w", dealerID, err)
	}
	if !dealer.IsActive() {
		return nil, fmt.Errorf("经销商 %s 已停用，拒绝同步", dealerID)
	}

	apiCfg, err := s.loadApiConfig(ctx, dealer)
	if err != nil {
		return nil, err
	}

	window, err := s.resolveWindow(ctx, dealerID, moduleCode)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	fetchLog := &model.FetchLog{
		RunID:       uuid.New().String(),
		DealerID:    dealerID,
		ModuleCode:  moduleCode,
		WindowStart: &window.From,
		WindowEnd:   &window.To,
		StartedAt:   startedAt,
	}

	log.Printf("[SyncService] run %s 开始: dealer=%s module=%s window=[%s, %s]",
		fetchLog.RunID, dealerID, moduleCode,
		window.From.Format(gatewayTimeLayout), window.To.Format(gatewayTimeLayout))

	records, err := s.fetchSvc.FetchWindow(ctx, dealer, apiCfg, desc, window)
	if err != nil {
		// 抓取阶段失败：无记录入库，整个 run 记为 failed
		fetchLog.Status = model.FetchStatusFailed
		fetchLog.ErrorMessage = err.Error()
		return s.finishRun(ctx, fetchLog, startedAt)
	}

	// records_fetched 只计入通过规范化的记录，被拒绝的归入 records_failed
	fetchLog.RecordsFetched = len(records)
	for _, raw := range records {
		rec, err := desc.Normalize(dealerID, raw)
		if err != nil {
			// 单条记录被拒绝不拖垮整个 run
			fetchLog.RecordsFetched--
			fetchLog.RecordsFailed++
			log.Printf("[SyncService] run %s 记录被拒绝: %v", fetchLog.RunID, err)
			continue
		}

		result, err := desc.Merge(ctx, s.db, rec)
		if err != nil {
			fetchLog.RecordsFailed++
			log.Printf("[SyncService] run %s 记录合并失败: %v", fetchLog.RunID, err)
			continue
		}

		switch result {
		case module.MergeNew:
			fetchLog.RecordsNew++
		case module.MergeDuplicate:
			fetchLog.RecordsDuplicate++
		case module.MergeUpdated:
			fetchLog.RecordsUpdated++
		}
	}

	// 全部记录被拒绝也算 partial：抓取本身成功了，重跑同一窗口
	// 只会再次拒绝同样的数据，failed 留给抓取阶段的失败
	if fetchLog.RecordsFailed > 0 {
		fetchLog.Status = model.FetchStatusPartial
	} else {
		fetchLog.Status = model.FetchStatusSuccess
	}

	return s.finishRun(ctx, fetchLog, startedAt)
}

// loadApiConfig 按经销商的 ConfigName 加载配置，回退到 default
func (s *syncService) loadApiConfig(ctx context.Context, dealer *model.Dealer) (*model.ApiConfiguration, error) {
	name := dealer.ConfigName
	if name == "" {
		name = "default"
	}
	apiCfg, err := s.apiConfigRepo.GetByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) && name != "default" {
		apiCfg, err = s.apiConfigRepo.GetByName(ctx, "default")
	}
	if err != nil {
		return nil, fmt.Errorf("加载 API 配置 %s 失败: %w", name, err)
	}
	return apiCfg, nil
}

// resolveWindow 决定本次 run 的拉取窗口
// 从上次成功的 last_fetch_at 拉到当前时刻；失败的 run 不推进
// last_fetch_at，所以下一次会覆盖同一窗口，保证不漏数据
func (s *syncService) resolveWindow(ctx context.Context, dealerID, moduleCode string) (Window, error) {
	now := time.Now()
	window := Window{From: now.Add(-defaultLookback), To: now}

	cfg, err := s.fetchConfigRepo.GetByPair(ctx, dealerID, moduleCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return window, nil
	}
	if err != nil {
		return window, fmt.Errorf("加载调度配置失败: %w", err)
	}
	if cfg.LastFetchAt != nil {
		window.From = *cfg.LastFetchAt
	}
	return window, nil
}

// finishRun 写入不可变日志并更新调度状态
func (s *syncService) finishRun(ctx context.Context, fetchLog *model.FetchLog, startedAt time.Time) (*model.FetchLog, error) {
	fetchLog.FinishedAt = time.Now()
	fetchLog.DurationMs = fetchLog.FinishedAt.Sub(startedAt).Milliseconds()

	if err := s.fetchLogRepo.Create(ctx, fetchLog); err != nil {
		return nil, fmt.Errorf("写入 run 日志失败: %w", err)
	}

	// 调度配置可能不存在（手动触发未建配置的模块），此时跳过状态更新
	if _, err := s.fetchConfigRepo.GetByPair(ctx, fetchLog.DealerID, fetchLog.ModuleCode); errors.Is(err, gorm.ErrRecordNotFound) {
		return fetchLog, nil
	}

	if fetchLog.IsFailure() {
		backoff, err := s.fetchConfigRepo.MarkFailure(ctx, fetchLog.DealerID, fetchLog.ModuleCode, startedAt, fetchLog.FinishedAt)
		if err != nil {
			log.Printf("[SyncService] run %s 更新失败计数出错: %v", fetchLog.RunID, err)
		} else if backoff > 0 {
			log.Printf("[SyncService] run %s 连续失败进入退避 %s: dealer=%s module=%s",
				fetchLog.RunID, backoff, fetchLog.DealerID, fetchLog.ModuleCode)
		}
	} else {
		if err := s.fetchConfigRepo.MarkSuccess(ctx, fetchLog.DealerID, fetchLog.ModuleCode, startedAt); err != nil {
			log.Printf("[SyncService] run %s 更新调度状态出错: %v", fetchLog.RunID, err)
		}
	}

	log.Printf("[SyncService] run %s 结束: status=%s fetched=%d new=%d dup=%d updated=%d failed=%d 耗时=%dms",
		fetchLog.RunID, fetchLog.Status, fetchLog.RecordsFetched, fetchLog.RecordsNew,
		fetchLog.RecordsDuplicate, fetchLog.RecordsUpdated, fetchLog.RecordsFailed, fetchLog.DurationMs)

	return fetchLog, nil
}
