package controller

import (
	"errors"
	"net/http"

	"dms_sync_v1_202608/internal/api/dto"
	"dms_sync_v1_202608/internal/model"
	"dms_sync_v1_202608/internal/repository"
	"dms_sync_v1_202608/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DealerController 经销商控制器
type DealerController struct {
	dealerRepo repository.DealerRepository
	probeSvc   *service.ProbeService
}

// NewDealerController 创建经销商控制器
func NewDealerController(dealerRepo repository.DealerRepository, probeSvc *service.ProbeService) *DealerController {
	return &DealerController{dealerRepo: dealerRepo, probeSvc: probeSvc}
}

// ==================== Handler 实现 ====================

// Create 录入经销商
func (c *DealerController) Create(ctx *gin.Context) {
	var req dto.DealerCreateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	dealer := &model.Dealer{
		DealerID:   req.DealerID,
		Name:       req.Name,
		Region:     req.Region,
		ApiKey:     req.ApiKey,
		ApiToken:   req.ApiToken,
		SecretKey:  req.SecretKey,
		ConfigName: req.ConfigName,
		Status:     model.DealerStatusActive,
	}
	if dealer.ConfigName == "" {
		dealer.ConfigName = "default"
	}

	if err := c.dealerRepo.Create(ctx.Request.Context(), dealer); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "经销商已录入",
		"data":    toDealerResp(dealer),
	})
}

// GetList 经销商列表
func (c *DealerController) GetList(ctx *gin.Context) {
	var req dto.DealerListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	filter := repository.DealerFilter{
		Region:   req.Region,
		Keyword:  req.Keyword,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status >= 0 {
		filter.Status = &req.Status
	}

	dealers, total, err := c.dealerRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	items := make([]dto.DealerResp, 0, len(dealers))
	for i := range dealers {
		items = append(items, toDealerResp(&dealers[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"total": total, "items": items},
	})
}

// GetDetail 经销商详情
func (c *DealerController) GetDetail(ctx *gin.Context) {
	dealer, err := c.dealerRepo.GetByDealerID(ctx.Request.Context(), ctx.Param("dealer_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "经销商不存在"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": toDealerResp(dealer)})
}

// SetStatus 启停经销商
func (c *DealerController) SetStatus(ctx *gin.Context) {
	dealerID := ctx.Param("dealer_id")
	status := model.DealerStatusActive
	if ctx.Query("active") == "false" {
		status = model.DealerStatusInactive
	}

	if err := c.dealerRepo.UpdateStatus(ctx.Request.Context(), dealerID, status); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "状态已更新",
		"data":    gin.H{"dealer_id": dealerID, "status": status},
	})
}

// Probe 探测经销商网关连通性
func (c *DealerController) Probe(ctx *gin.Context) {
	result, err := c.probeSvc.Probe(ctx.Request.Context(), ctx.Param("dealer_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": result})
}

// ==================== 辅助函数 ====================

func toDealerResp(dealer *model.Dealer) dto.DealerResp {
	return dto.DealerResp{
		ID:         dealer.ID,
		DealerID:   dealer.DealerID,
		Name:       dealer.Name,
		Region:     dealer.Region,
		ConfigName: dealer.ConfigName,
		Status:     dealer.Status,
		CreatedAt:  dealer.CreatedAt,
		UpdatedAt:  dealer.UpdatedAt,
	}
}
