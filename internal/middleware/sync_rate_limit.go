package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// 手动触发的默认冷却间隔
const defaultTriggerInterval = 1 * time.Minute

// ==================== 同步限流中间件 ====================

// SyncRateLimit 手动同步限流中间件
// 按经销商 + 模块维度进行限流
//
// 使用示例:
//
//	router.POST("/api/v1/sync/:dealer_id/:module",
//	    middleware.SyncRateLimit(0),
//	    syncCtl.TriggerSync,
//	)
//
// interval 为 0 时使用默认冷却间隔
func SyncRateLimit(interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = defaultTriggerInterval
	}

	return func(c *gin.Context) {
		dealerID := c.Param("dealer_id")
		moduleCode := c.Param("module")

		var key string
		if moduleCode != "" {
			key = DealerModuleKey(dealerID, moduleCode)
		} else {
			key = DealerKey(dealerID)
		}

		result := GetLimiter().Check(key, interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": int(result.RetryAfter.Seconds()),
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
