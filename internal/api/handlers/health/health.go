package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可檢查依賴是否可用
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Runtime   map[string]any `json:"runtime,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	service string
	version string
	deps    Pinger
	now     func() time.Time
}

// NewHandler 創建健康檢查處理器，deps 可為 nil
func NewHandler(service, version string, deps Pinger) *Handler {
	return &Handler{
		service: service,
		version: version,
		deps:    deps,
		now:     time.Now,
	}
}

// Root 根路徑
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SnapCook API is running"})
}

// HealthCheck 健康檢查，不呼叫外部服務
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   h.service,
		Version:   h.version,
		Timestamp: h.now().UTC(),
		Runtime: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	})
}

// ReadinessCheck 就緒檢查，快取後端不可用時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.deps != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.deps.Ping(ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "cache backend unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
