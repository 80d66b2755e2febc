package middleware

import (
	"fmt"
	"net/http"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BodySizeLimit 限制請求體大小的中間件
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			common.LogWarn("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			common.WriteError(c, PayloadTooLarge(maxSize))
			return
		}

		// 未宣告長度的請求仍以 MaxBytesReader 限制
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}

// PayloadTooLarge 請求體過大錯誤
func PayloadTooLarge(maxSize int64) error {
	return common.NewError(common.ErrCodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", maxSize),
		http.StatusRequestEntityTooLarge, nil)
}
