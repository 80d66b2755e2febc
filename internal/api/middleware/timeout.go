package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Timeout 為整個請求設定逾時
//
// 處理器需遵守 context 取消；逾時後若尚未寫出回應，回傳 504。
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", d),
			)
			common.WriteError(c, common.NewError(common.ErrCodeRequestTimeout, "request timed out",
				http.StatusGatewayTimeout, ctx.Err()))
		}
	}
}
