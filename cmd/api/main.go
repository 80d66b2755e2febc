package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapcook-api/internal/api"
	"snapcook-api/internal/core/ai/cache"
	"snapcook-api/internal/core/ai/openai"
	"snapcook-api/internal/core/ai/provider"
	"snapcook-api/internal/core/ai/queue"
	"snapcook-api/internal/core/ai/service"
	"snapcook-api/internal/core/image"
	"snapcook-api/internal/core/recipe"
	"snapcook-api/internal/infrastructure/config"
	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LogOptions{
		Level:   cfg.Log.Level,
		Mode:    cfg.Log.Mode,
		File:    cfg.Log.File,
		Service: cfg.App.Name,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("Configuration loaded",
		zap.String("openai_api_key", common.MaskAPIKey(cfg.OpenAI.APIKey)),
		zap.String("openai_model", cfg.OpenAI.Model),
		zap.String("suggest_engine", cfg.Suggest.Engine),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 初始化快取，後端不可用時直接停止啟動
	store, err := cache.New(&cfg.Cache, &cfg.Redis)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	client := openai.NewClient(provider.Config{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		BaseURL:    cfg.OpenAI.BaseURL,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
		MaxTokens:  cfg.OpenAI.MaxTokens,
	})

	// 限制同時進行的外部呼叫
	var backend provider.Provider = client
	if cfg.OpenAI.MaxConcurrency > 0 {
		backend = queue.NewManager(client, cfg.OpenAI.MaxConcurrency, cfg.OpenAI.QueueSize)
	}
	aiService := service.NewService(backend, store)
	defer aiService.Close()

	images := image.NewService(cfg.Image)
	analyzer := recipe.NewAnalyzer(
		recipe.NewIngredientService(aiService, images),
		api.NewSuggester(cfg, aiService),
	)

	router := api.SetupRouter(cfg, api.Dependencies{
		Analyzer:      analyzer,
		MaxImageBytes: images.MaxSizeBytes(),
		Readiness:     aiService,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo(common.MsgServerStarting,
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo(common.MsgServerStopping)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo(common.MsgServerExited)
}
