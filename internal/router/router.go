package router

import (
	"net/http"

	"dms_sync_v1_202608/internal/controller"
	"dms_sync_v1_202608/internal/middleware"

	"github.com/gin-gonic/gin"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	dealerCtl *controller.DealerController,
	syncCtl *controller.SyncController) {

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API 路由组
	api := r.Group("/api/v1")
	{
		// dealer 经销商管理
		dealers := api.Group("/dealers")
		{
			// GET /api/v1/dealers
			dealers.GET("", dealerCtl.GetList)
			dealers.GET("/:dealer_id", dealerCtl.GetDetail)
			dealers.POST("", dealerCtl.Create)
			dealers.PUT("/:dealer_id/status", dealerCtl.SetStatus)
			// 录入凭证后先探测，别把坏凭证留给夜间调度去发现
			dealers.POST("/:dealer_id/probe", middleware.SyncRateLimit(0), dealerCtl.Probe)
		}

		// sync 同步管理
		sync := api.Group("/sync")
		{
			// POST /api/v1/sync/dealers/H001/modules/prospect
			sync.POST("/dealers/:dealer_id/modules/:module",
				middleware.SyncRateLimit(0), syncCtl.TriggerSync)

			sync.GET("/modules", syncCtl.GetModules)
			sync.GET("/schedules", syncCtl.GetSchedules)
			sync.PUT("/schedules", syncCtl.UpsertSchedule)
			sync.GET("/logs", syncCtl.GetLogs)
			sync.GET("/logs/:run_id", syncCtl.GetLogDetail)
			sync.GET("/stats", syncCtl.GetStats)
			sync.GET("/status", syncCtl.GetStatus)
		}
	}
}
