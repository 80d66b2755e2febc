package middleware

import (
	"fmt"
	"net/http"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 日誌中間件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.Get(c)),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		// 根據狀態碼記錄不同級別的日誌
		switch {
		case status >= http.StatusInternalServerError:
			common.LogError(common.MsgRequestCompleted, append(fields, zap.String("error_type", "server_error"))...)
		case status >= http.StatusBadRequest:
			common.LogWarn(common.MsgRequestCompleted, append(fields, zap.String("error_type", "client_error"))...)
		default:
			common.LogInfo(common.MsgRequestCompleted, fields...)
		}
	}
}

// Recovery 恢復中間件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				panicRecoveries.Inc()
				common.LogError("Panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", requestid.Get(c)),
				)

				// 不對外輸出 panic 內容
				common.WriteError(c, common.NewError(common.ErrCodeInternalError, "internal server error",
					http.StatusInternalServerError, fmt.Errorf("panic: %v", r)))
			}
		}()

		c.Next()
	}
}
