package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/module"
	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/pkg/net"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试辅助 ====================

func setupSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.Dealer{}, &model.ApiConfiguration{},
		&model.FetchConfiguration{}, &model.FetchLog{},
		&model.Prospect{}, &model.ProspectUnit{},
	)
	if err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

type syncTestEnv struct {
	db      *gorm.DB
	syncSvc SyncService
	logRepo repository.FetchLogRepository
	cfgRepo repository.FetchConfigRepository
}

// newSyncTestEnv 搭一套指向 stub 网关的完整同步管线
func newSyncTestEnv(t *testing.T, gatewayURL string) *syncTestEnv {
	db := setupSyncTestDB(t)
	ctx := context.Background()

	dealerRepo := repository.NewDealerRepository(db)
	apiConfigRepo := repository.NewApiConfigRepository(db)
	cfgRepo := repository.NewFetchConfigRepository(db)
	logRepo := repository.NewFetchLogRepository(db)

	if err := apiConfigRepo.EnsureDefault(ctx, gatewayURL); err != nil {
		t.Fatalf("初始化 default 配置失败: %v", err)
	}
	err := dealerRepo.Create(ctx, &model.Dealer{
		DealerID:  "H001",
		Name:      "Dealer Satu",
		ApiKey:    "key-1",
		ApiToken:  "token-1",
		SecretKey: "secret-1",
		Status:    model.DealerStatusActive,
	})
	if err != nil {
		t.Fatalf("写入经销商失败: %v", err)
	}
	err = cfgRepo.Create(ctx, &model.FetchConfiguration{
		DealerID:        "H001",
		ModuleCode:      module.CodeProspect,
		ScheduleType:    model.ScheduleTypeInterval,
		IntervalMinutes: 60,
		IsActive:        true,
	})
	if err != nil {
		t.Fatalf("写入调度配置失败: %v", err)
	}

	fetchSvc := NewFetchService(net.NewDispatcher())
	syncSvc := NewSyncService(db, dealerRepo, apiConfigRepo, cfgRepo, logRepo, fetchSvc)

	return &syncTestEnv{db: db, syncSvc: syncSvc, logRepo: logRepo, cfgRepo: cfgRepo}
}

// prospectPayload 生成 n 条潜客原始记录
func prospectPayload(n int, modified string) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, map[string]interface{}{
			"idProspect":   fmt.Sprintf("P-%03d", i),
			"namaLengkap":  fmt.Sprintf("Customer %d", i),
			"modifiedTime": modified,
		})
	}
	return records
}

// stubGateway 单页 stub：校验签名头后返回给定记录
func stubGateway(t *testing.T, records []map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "" || r.Header.Get("X-Signature") == "" {
			t.Error("请求缺少签名头")
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("Bearer 凭证错误: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			DealerID string `json:"dealer_id"`
			Page     int    `json:"page"`
			Limit    int    `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("请求体解析失败: %v", err)
		}
		if req.DealerID != "H001" || req.Page <= 0 || req.Limit <= 0 {
			t.Errorf("请求体字段错误: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  1,
			"message": "ok",
			"data":    records,
		})
	}))
}

// ==================== 同步管线测试 ====================

func TestRunSync_AllNew(t *testing.T) {
	srv := stubGateway(t, prospectPayload(10, "2026-01-10 08:00:00"))
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)

	fetchLog, err := env.syncSvc.RunSync(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if fetchLog.Status != model.FetchStatusSuccess {
		t.Fatalf("状态应为 success: %s", fetchLog.Status)
	}
	if fetchLog.RecordsFetched != 10 || fetchLog.RecordsNew != 10 {
		t.Fatalf("计数错误: %+v", fetchLog)
	}
	if fetchLog.RunID == "" {
		t.Fatal("缺少 run_id")
	}

	var count int64
	env.db.Model(&model.Prospect{}).Count(&count)
	if count != 10 {
		t.Fatalf("入库数量错误: %d", count)
	}

	// 成功的 run 推进调度状态
	cfg, err := env.cfgRepo.GetByPair(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("查询调度配置失败: %v", err)
	}
	if cfg.LastFetchAt == nil {
		t.Fatal("成功后 last_fetch_at 应推进")
	}
}

func TestRunSync_RerunAllDuplicate(t *testing.T) {
	srv := stubGateway(t, prospectPayload(10, "2026-01-10 08:00:00"))
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)
	ctx := context.Background()

	if _, err := env.syncSvc.RunSync(ctx, "H001", module.CodeProspect); err != nil {
		t.Fatalf("首次同步失败: %v", err)
	}

	// 同一窗口重放，应全部判重且幂等
	fetchLog, err := env.syncSvc.RunSync(ctx, "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("重放同步失败: %v", err)
	}
	if fetchLog.Status != model.FetchStatusSuccess {
		t.Fatalf("状态应为 success: %s", fetchLog.Status)
	}
	if fetchLog.RecordsDuplicate != 10 || fetchLog.RecordsNew != 0 {
		t.Fatalf("重放计数错误: new=%d dup=%d", fetchLog.RecordsNew, fetchLog.RecordsDuplicate)
	}

	var count int64
	env.db.Model(&model.Prospect{}).Count(&count)
	if count != 10 {
		t.Fatalf("重放后入库数量变化: %d", count)
	}
}

func TestRunSync_PartialOnBadRecord(t *testing.T) {
	records := prospectPayload(5, "2026-01-10 08:00:00")
	// 第 3 条缺自然键
	delete(records[2], "idProspect")

	srv := stubGateway(t, records)
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)

	fetchLog, err := env.syncSvc.RunSync(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if fetchLog.Status != model.FetchStatusPartial {
		t.Fatalf("状态应为 partial: %s", fetchLog.Status)
	}
	// 被拒绝的记录不计入 records_fetched
	if fetchLog.RecordsFetched != 4 || fetchLog.RecordsNew != 4 || fetchLog.RecordsFailed != 1 {
		t.Fatalf("计数错误: fetched=%d new=%d failed=%d",
			fetchLog.RecordsFetched, fetchLog.RecordsNew, fetchLog.RecordsFailed)
	}

	// partial 不算失败，不进退避
	cfg, _ := env.cfgRepo.GetByPair(context.Background(), "H001", module.CodeProspect)
	if cfg.ConsecutiveFailures != 0 {
		t.Fatalf("partial 不应累计失败: %d", cfg.ConsecutiveFailures)
	}
}

func TestRunSync_AllRejectedIsPartial(t *testing.T) {
	records := prospectPayload(3, "2026-01-10 08:00:00")
	// 全部缺自然键：抓取本身成功，重跑只会再拒绝同样的数据
	for _, r := range records {
		delete(r, "idProspect")
	}

	srv := stubGateway(t, records)
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)

	fetchLog, err := env.syncSvc.RunSync(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if fetchLog.Status != model.FetchStatusPartial {
		t.Fatalf("状态应为 partial: %s", fetchLog.Status)
	}
	if fetchLog.RecordsFetched != 0 || fetchLog.RecordsFailed != 3 {
		t.Fatalf("计数错误: fetched=%d failed=%d",
			fetchLog.RecordsFetched, fetchLog.RecordsFailed)
	}

	// partial 照常推进 last_fetch_at，不进退避
	cfg, err := env.cfgRepo.GetByPair(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if cfg.LastFetchAt == nil {
		t.Fatal("partial 应推进 last_fetch_at")
	}
	if cfg.ConsecutiveFailures != 0 {
		t.Fatalf("partial 不应累计失败: %d", cfg.ConsecutiveFailures)
	}
}

func TestRunSync_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)

	fetchLog, err := env.syncSvc.RunSync(context.Background(), "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("流程不应报错: %v", err)
	}

	if fetchLog.Status != model.FetchStatusFailed {
		t.Fatalf("状态应为 failed: %s", fetchLog.Status)
	}
	if fetchLog.ErrorMessage == "" {
		t.Fatal("失败应记录错误信息")
	}

	// 抓取失败不能有任何记录入库
	var count int64
	env.db.Model(&model.Prospect{}).Count(&count)
	if count != 0 {
		t.Fatalf("失败 run 不应入库: %d", count)
	}

	// 失败计入连续失败，且 last_fetch_at 不推进
	cfg, _ := env.cfgRepo.GetByPair(context.Background(), "H001", module.CodeProspect)
	if cfg.ConsecutiveFailures != 1 {
		t.Fatalf("失败未累计: %d", cfg.ConsecutiveFailures)
	}
	if cfg.LastFetchAt != nil {
		t.Fatal("失败 run 不应推进 last_fetch_at")
	}
}

func TestRunSync_InactiveDealerRejected(t *testing.T) {
	srv := stubGateway(t, nil)
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)
	ctx := context.Background()

	env.db.Model(&model.Dealer{}).
		Where("dealer_id = ?", "H001").
		Update("status", model.DealerStatusInactive)

	if _, err := env.syncSvc.RunSync(ctx, "H001", module.CodeProspect); err == nil {
		t.Fatal("停用经销商应拒绝同步")
	}
}

func TestRunSync_UnknownModule(t *testing.T) {
	srv := stubGateway(t, nil)
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)

	if _, err := env.syncSvc.RunSync(context.Background(), "H001", "nosuchmodule"); err == nil {
		t.Fatal("未知模块应返回错误")
	}
}

func TestRunSync_LogIsPersisted(t *testing.T) {
	srv := stubGateway(t, prospectPayload(3, "2026-01-10 08:00:00"))
	defer srv.Close()
	env := newSyncTestEnv(t, srv.URL)
	ctx := context.Background()

	fetchLog, err := env.syncSvc.RunSync(ctx, "H001", module.CodeProspect)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	stored, err := env.logRepo.GetByRunID(ctx, fetchLog.RunID)
	if err != nil {
		t.Fatalf("按 run_id 查询失败: %v", err)
	}
	if stored.RecordsFetched != 3 || stored.Status != model.FetchStatusSuccess {
		t.Fatalf("落库日志不一致: %+v", stored)
	}
	if stored.WindowStart == nil || stored.WindowEnd == nil {
		t.Fatal("拉取窗口未落库")
	}
	if stored.FinishedAt.Before(stored.StartedAt) {
		t.Fatal("结束时间早于开始时间")
	}
}
