package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试辅助 ====================

// fakeSyncService 可控耗时的同步服务替身
type fakeSyncService struct {
	calls       int32
	block       chan struct{} // 非 nil 时在此阻塞，模拟在途 run
	blockModule string        // 非空时只阻塞该模块
	failRun     bool
}

func (f *fakeSyncService) RunSync(ctx context.Context, dealerID, moduleCode string) (*model.FetchLog, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil && (f.blockModule == "" || f.blockModule == moduleCode) {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	status := model.FetchStatusSuccess
	if f.failRun {
		status = model.FetchStatusFailed
	}
	return &model.FetchLog{
		RunID:      "test-run",
		DealerID:   dealerID,
		ModuleCode: moduleCode,
		Status:     status,
	}, nil
}

func setupSchedulerTest(t *testing.T, svc *fakeSyncService) (*SyncScheduler, repository.FetchConfigRepository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(&model.Dealer{}, &model.ApiConfiguration{}, &model.FetchConfiguration{})
	if err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	dealerRepo := repository.NewDealerRepository(db)
	apiConfigRepo := repository.NewApiConfigRepository(db)
	cfgRepo := repository.NewFetchConfigRepository(db)

	ctx := context.Background()
	if err := apiConfigRepo.EnsureDefault(ctx, "http://gateway.local"); err != nil {
		t.Fatalf("初始化 default 配置失败: %v", err)
	}
	err = dealerRepo.Create(ctx, &model.Dealer{
		DealerID: "H001", ApiKey: "k", ApiToken: "t", SecretKey: "s",
		Status: model.DealerStatusActive,
	})
	if err != nil {
		t.Fatalf("写入经销商失败: %v", err)
	}

	scheduler := NewSyncScheduler(cfgRepo, apiConfigRepo, dealerRepo, svc)
	return scheduler, cfgRepo
}

func seedDueConfig(t *testing.T, cfgRepo repository.FetchConfigRepository, moduleCode string) {
	past := time.Now().Add(-time.Minute)
	err := cfgRepo.Create(context.Background(), &model.FetchConfiguration{
		DealerID:        "H001",
		ModuleCode:      moduleCode,
		ScheduleType:    model.ScheduleTypeInterval,
		IntervalMinutes: 60,
		NextFetchAt:     &past,
		IsActive:        true,
	})
	if err != nil {
		t.Fatalf("写入调度配置失败: %v", err)
	}
}

// ==================== 调度器测试 ====================

func TestTick_DispatchesDueConfigs(t *testing.T) {
	svc := &fakeSyncService{}
	scheduler, cfgRepo := setupSchedulerTest(t, svc)

	seedDueConfig(t, cfgRepo, "prospect")
	seedDueConfig(t, cfgRepo, "billing")

	scheduler.tick(time.Now())
	scheduler.wg.Wait()

	if got := atomic.LoadInt32(&svc.calls); got != 2 {
		t.Fatalf("派发数量错误: %d", got)
	}

	// 租约把 next_fetch_at 推到未来，下一轮不会重复派发
	scheduler.tick(time.Now())
	scheduler.wg.Wait()
	if got := atomic.LoadInt32(&svc.calls); got != 2 {
		t.Fatalf("已租约的配置被重复派发: %d", got)
	}
}

func TestTick_SkipsInFlightPair(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeSyncService{block: block}
	scheduler, cfgRepo := setupSchedulerTest(t, svc)

	seedDueConfig(t, cfgRepo, "prospect")

	scheduler.tick(time.Now())

	// 等首个 run 进入阻塞
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&svc.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("首个 run 未被派发")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	// 把 next_fetch_at 拨回过去，模拟第二轮到期
	past := time.Now().Add(-time.Minute)
	cfg, err := cfgRepo.GetByPair(context.Background(), "H001", "prospect")
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if err := cfgRepo.Update(context.Background(), &model.FetchConfiguration{
		ID: cfg.ID, DealerID: cfg.DealerID, ModuleCode: cfg.ModuleCode,
		ScheduleType: cfg.ScheduleType, IntervalMinutes: cfg.IntervalMinutes,
		NextFetchAt: &past, IsActive: true,
	}); err != nil {
		t.Fatalf("更新配置失败: %v", err)
	}

	// 同配对在途，第二轮应跳过而不是排队
	scheduler.tick(time.Now())
	if got := atomic.LoadInt32(&svc.calls); got != 1 {
		t.Fatalf("在途配对被重复派发: %d", got)
	}

	close(block)
	scheduler.wg.Wait()
}

func TestTick_ConcurrencyBoundSpansTicks(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeSyncService{block: block}
	scheduler, cfgRepo := setupSchedulerTest(t, svc)
	scheduler.SetConcurrency(1)

	seedDueConfig(t, cfgRepo, "prospect")

	scheduler.tick(time.Now())

	// 等首个 run 占满信号量
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&svc.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("首个 run 未被派发")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	// 第二轮有另一个配对到期，上一轮的在途 run 仍占坑，不能超额派发
	seedDueConfig(t, cfgRepo, "billing")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.tick(time.Now())
	}()

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&svc.calls); got != 1 {
		t.Fatalf("并发超过上限: %d", got)
	}

	// 首个 run 结束后信号量释放，第二个 run 才能开始
	close(block)
	wg.Wait()
	scheduler.wg.Wait()
	if got := atomic.LoadInt32(&svc.calls); got != 2 {
		t.Fatalf("释放后第二个 run 未被派发: %d", got)
	}
}

func TestSyncNow_RejectsConcurrentSamePair(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeSyncService{block: block, blockModule: "prospect"}
	scheduler, _ := setupSchedulerTest(t, svc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.SyncNow(context.Background(), "H001", "prospect")
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&svc.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("首个 run 未启动")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if _, err := scheduler.SyncNow(context.Background(), "H001", "prospect"); err == nil {
		t.Fatal("同配对并发触发应被拒绝")
	}
	// 不同配对不受影响
	if _, err := scheduler.SyncNow(context.Background(), "H001", "billing"); err != nil {
		t.Fatalf("不同配对不应被拒绝: %v", err)
	}

	close(block)
	wg.Wait()
}

func TestNextRunTime(t *testing.T) {
	scheduler, _ := setupSchedulerTest(t, &fakeSyncService{})
	now := time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)

	interval := &model.FetchConfiguration{
		ScheduleType:    model.ScheduleTypeInterval,
		IntervalMinutes: 30,
	}
	next, err := scheduler.nextRunTime(interval, now)
	if err != nil {
		t.Fatalf("计算间隔调度失败: %v", err)
	}
	if !next.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("间隔调度时刻错误: %s", next)
	}

	cronCfg := &model.FetchConfiguration{
		ScheduleType:   model.ScheduleTypeCron,
		CronExpression: "0 2 * * *", // 每天 02:00
	}
	next, err = scheduler.nextRunTime(cronCfg, now)
	if err != nil {
		t.Fatalf("计算 cron 调度失败: %v", err)
	}
	if next.Hour() != 2 || next.Minute() != 0 {
		t.Fatalf("cron 调度时刻错误: %s", next)
	}

	bad := &model.FetchConfiguration{
		ScheduleType:   model.ScheduleTypeCron,
		CronExpression: "not a cron",
	}
	if _, err := scheduler.nextRunTime(bad, now); err == nil {
		t.Fatal("非法 cron 表达式应报错")
	}
}

func TestStatus(t *testing.T) {
	scheduler, _ := setupSchedulerTest(t, &fakeSyncService{})

	status := scheduler.Status()
	if status.Running {
		t.Fatal("未启动时 running 应为 false")
	}

	scheduler.Start()
	defer scheduler.Stop()

	status = scheduler.Status()
	if !status.Running {
		t.Fatal("启动后 running 应为 true")
	}
}
