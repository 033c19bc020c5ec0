package task

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/internal/service"
)

// ==================== SyncScheduler 同步调度器 ====================

// SyncScheduler 同步调度器
// 每分钟扫描一次到期的 (经销商, 模块) 调度配置，租约受理后派发 run
type SyncScheduler struct {
	fetchConfigRepo repository.FetchConfigRepository
	apiConfigRepo   repository.ApiConfigRepository
	dealerRepo      repository.DealerRepository
	syncService     service.SyncService
	cron            *cron.Cron

	// 并发控制：信号量跨扫描轮共享，在途 run 跨轮占坑
	concurrencyLimit int
	sem              chan struct{}

	// 进程内 in-flight 去重，键为 dealerID|moduleCode
	// 上一轮还没跑完的配对直接跳过，不排队
	inflight sync.Map

	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// 统计
	totalRuns   int64
	totalErrors int64
}

// NewSyncScheduler 创建同步调度器
func NewSyncScheduler(
	fetchConfigRepo repository.FetchConfigRepository,
	apiConfigRepo repository.ApiConfigRepository,
	dealerRepo repository.DealerRepository,
	syncService service.SyncService,
) *SyncScheduler {
	return &SyncScheduler{
		fetchConfigRepo:  fetchConfigRepo,
		apiConfigRepo:    apiConfigRepo,
		dealerRepo:       dealerRepo,
		syncService:      syncService,
		cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 8,
		sem:              make(chan struct{}, 8),
	}
}

// SetConcurrency 设置并发上限，须在 Start 前调用
func (s *SyncScheduler) SetConcurrency(limit int) {
	if limit > 0 {
		s.concurrencyLimit = limit
		s.sem = make(chan struct{}, limit)
	}
}

// Start 启动调度器
func (s *SyncScheduler) Start() {
	// 每分钟整点扫描
	_, err := s.cron.AddFunc("0 * * * * *", func() {
		s.tick(time.Now())
	})
	if err != nil {
		log.Printf("[SyncScheduler] 定时任务启动失败: %v", err)
		return
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.cron.Start()
	log.Println("[SyncScheduler] 已启动 (每分钟扫描到期配置)")
}

// Stop 停止调度器并等待在途 run 结束
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	log.Println("[SyncScheduler] 已停止")
}

// tick 单轮扫描
func (s *SyncScheduler) tick(now time.Time) {
	ctx := context.Background()

	cfgs, err := s.fetchConfigRepo.ListDue(ctx, now)
	if err != nil {
		log.Printf("[SyncScheduler] 查询到期配置失败: %v", err)
		return
	}
	if len(cfgs) == 0 {
		return
	}

	log.Printf("[SyncScheduler] 本轮到期配置 %d 条", len(cfgs))

	for i := range cfgs {
		cfg := cfgs[i]
		key := cfg.DealerID + "|" + cfg.ModuleCode

		// 上一轮的同配对 run 还在途，跳过本轮，不排队
		if _, loaded := s.inflight.LoadOrStore(key, struct{}{}); loaded {
			log.Printf("[SyncScheduler] %s 上一次 run 未结束，跳过", key)
			continue
		}

		next, err := s.nextRunTime(&cfg, now)
		if err != nil {
			s.inflight.Delete(key)
			log.Printf("[SyncScheduler] %s 调度表达式无效: %v", key, err)
			continue
		}

		// 租约：只有抢到 next_fetch_at 推进权的实例才派发
		ok, err := s.fetchConfigRepo.Lease(ctx, &cfg, next)
		if err != nil {
			s.inflight.Delete(key)
			log.Printf("[SyncScheduler] %s 租约失败: %v", key, err)
			continue
		}
		if !ok {
			s.inflight.Delete(key)
			continue
		}

		s.sem <- struct{}{}
		s.wg.Add(1)
		go func(cfg model.FetchConfiguration, key string) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.inflight.Delete(key)

			s.runOne(&cfg)
		}(cfg, key)
	}
}

// nextRunTime 计算下一次调度时刻
func (s *SyncScheduler) nextRunTime(cfg *model.FetchConfiguration, now time.Time) (time.Time, error) {
	if cfg.ScheduleType == model.ScheduleTypeCron && cfg.CronExpression != "" {
		sched, err := cron.ParseStandard(cfg.CronExpression)
		if err != nil {
			return time.Time{}, err
		}
		return sched.Next(now), nil
	}
	return now.Add(cfg.Interval()), nil
}

// runOne 执行单个配对的 run
func (s *SyncScheduler) runOne(cfg *model.FetchConfiguration) {
	timeout := s.runTimeout(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fetchLog, err := s.syncService.RunSync(ctx, cfg.DealerID, cfg.ModuleCode)

	s.mu.Lock()
	s.totalRuns++
	if err != nil || (fetchLog != nil && fetchLog.IsFailure()) {
		s.totalErrors++
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("[SyncScheduler] dealer %s 模块 %s run 异常: %v", cfg.DealerID, cfg.ModuleCode, err)
	}
}

// runTimeout 取经销商所属配置的 run 超时
func (s *SyncScheduler) runTimeout(cfg *model.FetchConfiguration) time.Duration {
	const fallback = 10 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dealer, err := s.dealerRepo.GetByDealerID(ctx, cfg.DealerID)
	if err != nil {
		return fallback
	}
	name := dealer.ConfigName
	if name == "" {
		name = "default"
	}
	apiCfg, err := s.apiConfigRepo.GetByName(ctx, name)
	if err != nil {
		return fallback
	}
	return apiCfg.RunTimeout()
}

// ==================== 手动触发与状态 ====================

// SyncNow 立即同步单个 (经销商, 模块)，与调度互斥
func (s *SyncScheduler) SyncNow(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error) {
	key := dealerID + "|" + moduleCode
	if _, loaded := s.inflight.LoadOrStore(key, struct{}{}); loaded {
		return nil, errors.New("该模块的上一次同步尚未结束")
	}
	defer s.inflight.Delete(key)

	return s.syncService.RunSync(ctx, dealerID, moduleCode)
}

// SchedulerStatus 调度器运行状态
type SchedulerStatus struct {
	Running     bool     `json:"running"`
	InFlight    []string `json:"in_flight"`
	TotalRuns   int64    `json:"total_runs"`
	TotalErrors int64    `json:"total_errors"`
}

// Status 当前状态快照
func (s *SyncScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	status := SchedulerStatus{
		Running:     s.running,
		TotalRuns:   s.totalRuns,
		TotalErrors: s.totalErrors,
	}
	s.mu.Unlock()

	s.inflight.Range(func(key, _ interface{}) bool {
		status.InFlight = append(status.InFlight, key.(string))
		return true
	})
	return status
}
