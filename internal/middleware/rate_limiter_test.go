package middleware

import (
	"testing"
	"time"
)

func TestTriggerRateLimiter_Cooldown(t *testing.T) {
	limiter := &TriggerRateLimiter{}
	key := DealerModuleKey("H001", "prospect")

	if result := limiter.Check(key, time.Minute); !result.Allowed {
		t.Fatal("首次触发应放行")
	}
	result := limiter.Check(key, time.Minute)
	if result.Allowed {
		t.Fatal("冷却期内应拒绝")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Fatalf("剩余冷却时间错误: %s", result.RetryAfter)
	}

	// 不同维度互不影响
	if result := limiter.Check(DealerModuleKey("H001", "billing"), time.Minute); !result.Allowed {
		t.Fatal("不同模块不应共享冷却")
	}

	limiter.Reset(key)
	if result := limiter.Check(key, time.Minute); !result.Allowed {
		t.Fatal("重置后应放行")
	}
}
