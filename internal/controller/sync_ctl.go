package controller

import (
	"errors"
	"net/http"
	"time"

	"dms_sync_v1_202608/internal/api/dto"
	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/module"
	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/internal/task"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SyncController 同步控制器
type SyncController struct {
	scheduler       *task.SyncScheduler
	fetchConfigRepo repository.FetchConfigRepository
	fetchLogRepo    repository.FetchLogRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(
	scheduler *task.SyncScheduler,
	fetchConfigRepo repository.FetchConfigRepository,
	fetchLogRepo repository.FetchLogRepository,
) *SyncController {
	return &SyncController{
		scheduler:       scheduler,
		fetchConfigRepo: fetchConfigRepo,
		fetchLogRepo:    fetchLogRepo,
	}
}

// ==================== Handler 实现 ====================

// TriggerSync 手动触发单个 (经销商, 模块) 同步
func (c *SyncController) TriggerSync(ctx *gin.Context) {
	dealerID := ctx.Param("dealer_id")
	moduleCode := ctx.Param("module")

	if !module.Exists(moduleCode) {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "未知的模块代码: " + moduleCode})
		return
	}

	fetchLog, err := c.scheduler.SyncNow(ctx.Request.Context(), dealerID, moduleCode)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步已完成",
		"data": dto.TriggerSyncResp{
			RunID:            fetchLog.RunID,
			Status:           fetchLog.Status,
			RecordsFetched:   fetchLog.RecordsFetched,
			RecordsNew:       fetchLog.RecordsNew,
			RecordsDuplicate: fetchLog.RecordsDuplicate,
			RecordsUpdated:   fetchLog.RecordsUpdated,
			RecordsFailed:    fetchLog.RecordsFailed,
			DurationMs:       fetchLog.DurationMs,
			ErrorMessage:     fetchLog.ErrorMessage,
		},
	})
}

// GetModules 模块清单
func (c *SyncController) GetModules(ctx *gin.Context) {
	type moduleResp struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		HasLines bool   `json:"has_lines"`
	}

	items := make([]moduleResp, 0)
	for _, d := range module.All() {
		items = append(items, moduleResp{
			Code:     d.Code,
			Name:     d.Name,
			Endpoint: d.Endpoint,
			HasLines: d.HasLines,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": items})
}

// GetSchedules 调度配置列表
func (c *SyncController) GetSchedules(ctx *gin.Context) {
	cfgs, err := c.fetchConfigRepo.List(ctx.Request.Context(), ctx.Query("dealer_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	items := make([]dto.ScheduleResp, 0, len(cfgs))
	for i := range cfgs {
		items = append(items, toScheduleResp(&cfgs[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": items})
}

// UpsertSchedule 新建或调整调度配置
func (c *SyncController) UpsertSchedule(ctx *gin.Context) {
	var req dto.ScheduleUpsertReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}
	if !module.Exists(req.ModuleCode) {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "未知的模块代码: " + req.ModuleCode})
		return
	}
	if req.ScheduleType == model.ScheduleTypeCron && req.CronExpression == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "cron 调度必须提供 cron_expression"})
		return
	}

	reqCtx := ctx.Request.Context()
	cfg, err := c.fetchConfigRepo.GetByPair(reqCtx, req.DealerID, req.ModuleCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = &model.FetchConfiguration{
			DealerID:   req.DealerID,
			ModuleCode: req.ModuleCode,
			IsActive:   true,
		}
		applyScheduleReq(cfg, &req)
		if err := c.fetchConfigRepo.Create(reqCtx, cfg); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "调度配置已创建", "data": toScheduleResp(cfg)})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	applyScheduleReq(cfg, &req)
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if err := c.fetchConfigRepo.Update(reqCtx, cfg); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "调度配置已更新", "data": toScheduleResp(cfg)})
}

// GetLogs 抓取日志列表
func (c *SyncController) GetLogs(ctx *gin.Context) {
	var req dto.FetchLogListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	filter := repository.FetchLogFilter{
		DealerID:   req.DealerID,
		ModuleCode: req.ModuleCode,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			end := t.Add(24*time.Hour - time.Second)
			filter.EndDate = &end
		}
	}

	logs, total, err := c.fetchLogRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"total": total, "items": logs},
	})
}

// GetLogDetail 按 run_id 查询单次 run
func (c *SyncController) GetLogDetail(ctx *gin.Context) {
	fetchLog, err := c.fetchLogRepo.GetByRunID(ctx.Request.Context(), ctx.Param("run_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "run 不存在"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": fetchLog})
}

// GetStats 抓取统计（默认近 24 小时）
func (c *SyncController) GetStats(ctx *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	stats, err := c.fetchLogRepo.GetStats(ctx.Request.Context(), ctx.Query("dealer_id"), since)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": stats})
}

// GetStatus 调度器状态
func (c *SyncController) GetStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": c.scheduler.Status()})
}

// ==================== 辅助函数 ====================

func applyScheduleReq(cfg *model.FetchConfiguration, req *dto.ScheduleUpsertReq) {
	if req.ScheduleType != "" {
		cfg.ScheduleType = req.ScheduleType
	}
	if cfg.ScheduleType == "" {
		cfg.ScheduleType = model.ScheduleTypeInterval
	}
	if req.IntervalMinutes > 0 {
		cfg.IntervalMinutes = req.IntervalMinutes
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	if req.CronExpression != "" {
		cfg.CronExpression = req.CronExpression
	}
}

func toScheduleResp(cfg *model.FetchConfiguration) dto.ScheduleResp {
	return dto.ScheduleResp{
		DealerID:            cfg.DealerID,
		ModuleCode:          cfg.ModuleCode,
		ScheduleType:        cfg.ScheduleType,
		IntervalMinutes:     cfg.IntervalMinutes,
		CronExpression:      cfg.CronExpression,
		LastFetchAt:         cfg.LastFetchAt,
		NextFetchAt:         cfg.NextFetchAt,
		IsActive:            cfg.IsActive,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
		BackoffUntil:        cfg.BackoffUntil,
	}
}
