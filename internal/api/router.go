package api

import (
	"net/http"
	"time"

	"snapcook-api/internal/api/handlers/health"
	recipeHandler "snapcook-api/internal/api/handlers/recipe"
	"snapcook-api/internal/api/middleware"
	recipeService "snapcook-api/internal/core/recipe"
	"snapcook-api/internal/infrastructure/config"
	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Analyzer      *recipeService.Analyzer
	MaxImageBytes int64
	Readiness     health.Pinger // 可為 nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	// CORS 設置，萬用來源不可搭配 credentials
	allowAll := len(cfg.CORS.AllowedOrigins) == 0 || cfg.CORS.AllowedOrigins[0] == "*"
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst))
	}
	if cfg.DedupWindow > 0 {
		router.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	}

	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg.App.Name, cfg.App.Version, deps.Readiness)
	handler := recipeHandler.NewHandler(deps.Analyzer, deps.MaxImageBytes)

	// 健康檢查與監控路由
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 根路徑與 /api/v1 掛載相同的 API
	for _, group := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api/v1")} {
		group.POST("/detect-ingredients", handler.HandleDetectIngredients)
		group.POST("/suggest-recipes", handler.HandleSuggestRecipes)
		group.POST("/analyze-and-suggest", handler.HandleAnalyzeAndSuggest)
	}

	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.NewError(common.ErrCodeNotFound, "route not found", http.StatusNotFound, nil))
	})

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}

// NewSuggester 依設定選擇食譜推薦引擎
func NewSuggester(cfg *config.Config, ai recipeService.Completer) recipeService.Suggester {
	if cfg.Suggest.Engine == "local" {
		common.LogInfo("Using local recipe catalog for suggestions")
		return recipeService.NewCatalogSuggester(cfg.Suggest.MaxRecipes)
	}
	return recipeService.NewSuggestionService(ai, cfg.Suggest.MaxRecipes)
}
