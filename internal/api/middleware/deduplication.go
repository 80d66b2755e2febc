package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 拒絕時間窗內重複送出的相同 POST 請求
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]time.Time
}

// NewDeduplicator 創建去重器
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:   window,
		now:      time.Now,
		requests: make(map[string]time.Time),
	}
}

// Middleware 請求去重中間件
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				common.WriteError(c, PayloadTooLarge(maxErr.Limit))
				return
			}
			common.LogWarn("Failed to read request body", zap.Error(err))
			common.WriteError(c, common.InvalidInput("failed to read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		fingerprint := c.ClientIP() + ":" + c.Request.URL.Path + ":" + hex.EncodeToString(hash[:])

		if !d.allow(fingerprint) {
			duplicateRejects.Inc()
			common.LogWarn("Duplicate submission rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			common.WriteError(c, common.NewError(common.ErrCodeTooManyRequests,
				"duplicate request, please wait before retrying", http.StatusTooManyRequests, nil))
			return
		}

		c.Next()
	}
}

// allow 記錄指紋，時間窗內重複出現時回傳 false
func (d *Deduplicator) allow(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return false
	}
	d.requests[fingerprint] = now

	// 順便清理過期指紋，保持 map 大小受限
	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
		}
	}
	return true
}
