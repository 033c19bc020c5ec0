package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dms_sync_v1_202608/internal/controller"
	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/internal/router"
	"dms_sync_v1_202608/internal/service"
	"dms_sync_v1_202608/internal/task"
	"dms_sync_v1_202608/pkg/database"
	"dms_sync_v1_202608/pkg/net"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 2. 初始化数据库
	db := initDatabase()

	// 3. 初始化依赖
	deps := initDependencies(db)

	// 4. 启动调度器
	deps.Scheduler.Start()

	// 5. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers.Dealer, deps.Controllers.Sync)

	// 6. 启动服务
	startServer(r, deps.Scheduler)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Scheduler   *task.SyncScheduler
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Dealer      repository.DealerRepository
	ApiConfig   repository.ApiConfigRepository
	FetchConfig repository.FetchConfigRepository
	FetchLog    repository.FetchLogRepository
}

// Services 服务集合
type Services struct {
	Fetch service.FetchService
	Sync  service.SyncService
	Probe *service.ProbeService
}

// Controllers 控制器集合
type Controllers struct {
	Dealer *controller.DealerController
	Sync   *controller.SyncController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=dms_sync port=5432 sslmode=disable")

	return database.InitDB(dsn,
		// 主档与配置
		&model.Dealer{}, &model.ApiConfiguration{},
		&model.FetchConfiguration{}, &model.FetchLog{},
		// 销售域
		&model.Prospect{}, &model.ProspectUnit{},
		&model.Leasing{},
		&model.DocHandling{}, &model.DocHandlingUnit{},
		&model.Billing{},
		// 整车域
		&model.UnitInbound{}, &model.UnitInboundUnit{},
		&model.Delivery{}, &model.DeliveryUnit{},
		&model.UnitInvoice{}, &model.UnitInvoiceUnit{},
		// 售后域
		&model.WorkOrder{}, &model.WorkOrderService{}, &model.WorkOrderPart{},
		&model.WorkshopInvoice{}, &model.WorkshopInvoiceLine{},
		&model.DepositHLO{}, &model.DepositHLOPart{},
		&model.UnpaidHLO{}, &model.UnpaidHLOPart{},
		// 零件域
		&model.PartsInbound{}, &model.PartsInboundPart{},
		&model.PartsSales{}, &model.PartsSalesPart{},
		&model.PartsInvoice{}, &model.PartsInvoicePart{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Dealer:      repository.NewDealerRepository(db),
		ApiConfig:   repository.NewApiConfigRepository(db),
		FetchConfig: repository.NewFetchConfigRepository(db),
		FetchLog:    repository.NewFetchLogRepository(db),
	}

	// 启动时保证 default 网关配置存在
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repos.ApiConfig.EnsureDefault(ctx, getEnv("GATEWAY_BASE_URL", "https://dgi.example.com/api")); err != nil {
		log.Fatalf("初始化 default API 配置失败: %v", err)
	}

	// -------- 服务层 --------
	dispatcher := net.NewDispatcher()
	services := &Services{
		Fetch: service.NewFetchService(dispatcher),
		Probe: service.NewProbeService(repos.Dealer, repos.ApiConfig),
	}
	services.Sync = service.NewSyncService(db,
		repos.Dealer, repos.ApiConfig, repos.FetchConfig, repos.FetchLog, services.Fetch)

	// -------- 调度器 --------
	scheduler := task.NewSyncScheduler(repos.FetchConfig, repos.ApiConfig, repos.Dealer, services.Sync)
	if limit, err := strconv.Atoi(getEnv("SYNC_CONCURRENCY", "8")); err == nil {
		scheduler.SetConcurrency(limit)
	}

	// -------- Controller 层 --------
	controllers := &Controllers{
		Dealer: controller.NewDealerController(repos.Dealer, services.Probe),
		Sync:   controller.NewSyncController(scheduler, repos.FetchConfig, repos.FetchLog),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Scheduler:   scheduler,
		Controllers: controllers,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, scheduler *task.SyncScheduler) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 先停调度器，等在途 run 落完日志再关 HTTP
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
