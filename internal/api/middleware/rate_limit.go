package middleware

import (
	"net/http"
	"strconv"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimit 全域令牌桶限流中間件
//
// 每個 window 補充 requests 個令牌，burst 為桶容量。
func RateLimit(requests int, window time.Duration, burst int) gin.HandlerFunc {
	if requests <= 0 {
		requests = 1
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(window/time.Duration(requests)), burst)
	retryAfter := strconv.Itoa(max(1, int((window / time.Duration(requests)).Seconds())))

	return func(c *gin.Context) {
		if !limiter.Allow() {
			rateLimitRejects.Inc()
			common.LogWarn("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", retryAfter)
			common.WriteError(c, common.NewError(common.ErrCodeTooManyRequests,
				"too many requests, please retry later", http.StatusTooManyRequests, nil))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}
