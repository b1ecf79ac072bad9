package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ==================== IPRateLimiter 按客户端限流 ====================

// IPRateLimiter 每个 key 一个令牌桶
type IPRateLimiter struct {
	limiters sync.Map // key -> *limiterEntry
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewIPRateLimiter rps <= 0 时不限流
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 下一个令牌的等待时间
}

// Check 消耗一个令牌
func (r *IPRateLimiter) Check(key string) CheckResult {
	if r.rps <= 0 {
		return CheckResult{Allowed: true}
	}

	actual, _ := r.limiters.LoadOrStore(key, &limiterEntry{limiter: rate.NewLimiter(r.rps, r.burst)})
	entry := actual.(*limiterEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	entry.lastSeen = now

	res := entry.limiter.ReserveN(now, 1)
	if !res.OK() {
		return CheckResult{Allowed: false, RetryAfter: time.Second}
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return CheckResult{Allowed: true}
	}
	// 不排队，直接拒绝并归还令牌
	res.CancelAt(now)
	return CheckResult{Allowed: false, RetryAfter: delay}
}

// Sweep 清理长期未访问的 key，返回清理数量
func (r *IPRateLimiter) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	n := 0
	r.limiters.Range(func(k, v interface{}) bool {
		entry := v.(*limiterEntry)
		entry.mu.Lock()
		stale := entry.lastSeen.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			r.limiters.Delete(k)
			n++
		}
		return true
	})
	return n
}

// ==================== Gin 中间件 ====================

// RateLimit 按客户端 IP 限流，超限返回 429
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result := limiter.Check(c.ClientIP())
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"message":     formatRetryMessage(seconds),
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}

func formatRetryMessage(seconds int) string {
	if seconds == 1 {
		return "Please wait a second and try again."
	}
	return fmt.Sprintf("Please wait %d seconds and try again.", seconds)
}
