package repository

import (
	"context"
	"testing"
	"time"

	"dms_sync_v1_202608/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试辅助 ====================

func setupConfigTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.FetchConfiguration{}, &model.FetchLog{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func seedConfig(t *testing.T, repo FetchConfigRepository, nextFetchAt *time.Time) *model.FetchConfiguration {
	cfg := &model.FetchConfiguration{
		DealerID:        "H001",
		ModuleCode:      "prospect",
		ScheduleType:    model.ScheduleTypeInterval,
		IntervalMinutes: 60,
		NextFetchAt:     nextFetchAt,
		IsActive:        true,
	}
	if err := repo.Create(context.Background(), cfg); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return cfg
}

// ==================== 调度配置测试 ====================

func TestListDue(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	// 到期、未到期、从未跑过三种状态
	seedConfig(t, repo, &past)
	if err := repo.Create(ctx, &model.FetchConfiguration{
		DealerID: "H001", ModuleCode: "billing", NextFetchAt: &future, IsActive: true,
	}); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	if err := repo.Create(ctx, &model.FetchConfiguration{
		DealerID: "H002", ModuleCode: "prospect", IsActive: true,
	}); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}

	due, err := repo.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("查询到期配置失败: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("到期配置数量错误: %d", len(due))
	}
}

func TestLease_CASPreventsDoubleDispatch(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	cfg := seedConfig(t, repo, &past)

	next := now.Add(time.Hour)
	ok, err := repo.Lease(ctx, cfg, next)
	if err != nil {
		t.Fatalf("首次租约失败: %v", err)
	}
	if !ok {
		t.Fatal("首次租约应成功")
	}

	// 用同一份过期快照再抢一次，应抢不到
	ok, err = repo.Lease(ctx, cfg, next.Add(time.Minute))
	if err != nil {
		t.Fatalf("二次租约出错: %v", err)
	}
	if ok {
		t.Fatal("过期快照不应抢到租约")
	}
}

func TestLease_NullNextFetchAt(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()

	cfg := seedConfig(t, repo, nil)

	ok, err := repo.Lease(ctx, cfg, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("租约失败: %v", err)
	}
	if !ok {
		t.Fatal("next_fetch_at 为 NULL 的新配置应能租约")
	}
}

func TestMarkFailure_BackoffAfterThreshold(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedConfig(t, repo, nil)

	// 阈值之前不退避
	for i := 1; i < BackoffThreshold; i++ {
		backoff, err := repo.MarkFailure(ctx, "H001", "prospect", now, now)
		if err != nil {
			t.Fatalf("第 %d 次失败记录出错: %v", i, err)
		}
		if backoff != 0 {
			t.Fatalf("第 %d 次失败不应退避: %s", i, backoff)
		}
	}

	// 达到阈值后按 interval 的倍数退避
	backoff, err := repo.MarkFailure(ctx, "H001", "prospect", now, now)
	if err != nil {
		t.Fatalf("阈值失败记录出错: %v", err)
	}
	if backoff != 2*time.Hour { // 60m << 1
		t.Fatalf("首次退避时长错误: %s", backoff)
	}

	// 再失败一次，退避翻倍
	backoff, err = repo.MarkFailure(ctx, "H001", "prospect", now, now)
	if err != nil {
		t.Fatalf("追加失败记录出错: %v", err)
	}
	if backoff != 4*time.Hour {
		t.Fatalf("退避未翻倍: %s", backoff)
	}

	cfg, err := repo.GetByPair(ctx, "H001", "prospect")
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if cfg.ConsecutiveFailures != BackoffThreshold+1 {
		t.Fatalf("连续失败次数错误: %d", cfg.ConsecutiveFailures)
	}
	if cfg.BackoffUntil == nil || cfg.NextFetchAt == nil {
		t.Fatal("退避状态未落库")
	}
}

func TestMarkFailure_BackoffCapped(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedConfig(t, repo, nil)

	var backoff time.Duration
	var err error
	for i := 0; i < 10; i++ {
		backoff, err = repo.MarkFailure(ctx, "H001", "prospect", now, now)
		if err != nil {
			t.Fatalf("失败记录出错: %v", err)
		}
	}
	if backoff != MaxBackoff {
		t.Fatalf("退避应封顶 %s: %s", MaxBackoff, backoff)
	}
}

func TestMarkFailure_LongOutageStaysCapped(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	// 长时间故障下失败计数很高，位移不能溢出成负退避
	cfg := seedConfig(t, repo, nil)
	err := db.Model(&model.FetchConfiguration{}).
		Where("id = ?", cfg.ID).
		Update("consecutive_failures", 62).Error
	if err != nil {
		t.Fatalf("预置失败计数出错: %v", err)
	}

	backoff, err := repo.MarkFailure(ctx, "H001", "prospect", now, now)
	if err != nil {
		t.Fatalf("失败记录出错: %v", err)
	}
	if backoff != MaxBackoff {
		t.Fatalf("高失败计数下退避应封顶 %s: %s", MaxBackoff, backoff)
	}

	stored, err := repo.GetByPair(ctx, "H001", "prospect")
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if stored.NextFetchAt == nil || stored.NextFetchAt.Before(now) {
		t.Fatal("退避后 next_fetch_at 应被推到未来")
	}
}

func TestMarkSuccess_ResetsBackoff(t *testing.T) {
	db := setupConfigTestDB(t)
	repo := NewFetchConfigRepository(db)
	ctx := context.Background()
	now := time.Now()

	seedConfig(t, repo, nil)

	for i := 0; i <= BackoffThreshold; i++ {
		if _, err := repo.MarkFailure(ctx, "H001", "prospect", now, now); err != nil {
			t.Fatalf("失败记录出错: %v", err)
		}
	}

	if err := repo.MarkSuccess(ctx, "H001", "prospect", now); err != nil {
		t.Fatalf("成功记录出错: %v", err)
	}

	cfg, err := repo.GetByPair(ctx, "H001", "prospect")
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if cfg.ConsecutiveFailures != 0 {
		t.Fatalf("成功后连续失败应清零: %d", cfg.ConsecutiveFailures)
	}
	if cfg.BackoffUntil != nil {
		t.Fatal("成功后退避状态应清空")
	}
	if cfg.LastFetchAt == nil {
		t.Fatal("成功后 last_fetch_at 应推进")
	}
}
