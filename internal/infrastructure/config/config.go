package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey 未設定外部服務金鑰
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Suggest     SuggestConfig   `mapstructure:"suggest"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	CORS        CORSConfig      `mapstructure:"cors"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	Log         LogConfig       `mapstructure:"log"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenAIConfig 外部推論服務配置
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	// 同時進行的外部呼叫上限，0 表示不限制
	MaxConcurrency int `mapstructure:"max_concurrency"`
	QueueSize      int `mapstructure:"queue_size"`
}

// SuggestConfig 食譜建議設定
type SuggestConfig struct {
	Engine     string `mapstructure:"engine"` // ai / local
	MaxRecipes int    `mapstructure:"max_recipes"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory / redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxPixels    int64 `mapstructure:"max_pixels"`
	MaxDimension int   `mapstructure:"max_dimension"`
	JPEGQuality  int   `mapstructure:"jpeg_quality"`
}

// CORSConfig 跨域設定
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"`
	File  string `mapstructure:"file"`
}

// 環境變數對應表
var envBindings = map[string]string{
	"app.env":                "APP_ENV",
	"app.debug":              "APP_DEBUG",
	"app.version":            "APP_VERSION",
	"server.port":            "PORT",
	"server.read_timeout":    "SERVER_READ_TIMEOUT",
	"server.write_timeout":   "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":    "SERVER_IDLE_TIMEOUT",
	"server.request_timeout": "SERVER_REQUEST_TIMEOUT",
	"server.max_body_bytes":  "SERVER_MAX_BODY_BYTES",
	"openai.api_key":         "OPENAI_API_KEY",
	"openai.model":           "OPENAI_MODEL",
	"openai.base_url":        "OPENAI_BASE_URL",
	"openai.max_tokens":      "OPENAI_MAX_TOKENS",
	"openai.timeout":         "OPENAI_TIMEOUT",
	"openai.max_retries":     "OPENAI_MAX_RETRIES",
	"openai.max_concurrency": "OPENAI_MAX_CONCURRENCY",
	"openai.queue_size":      "OPENAI_QUEUE_SIZE",
	"suggest.engine":         "SUGGEST_ENGINE",
	"suggest.max_recipes":    "SUGGEST_MAX_RECIPES",
	"cache.enabled":          "CACHE_ENABLED",
	"cache.backend":          "CACHE_BACKEND",
	"cache.max_size":         "CACHE_MAX_SIZE",
	"cache.ttl":              "CACHE_TTL",
	"cache.cleanup_interval": "CACHE_CLEANUP_INTERVAL",
	"redis.addr":             "REDIS_ADDR",
	"redis.password":         "REDIS_PASSWORD",
	"redis.db":               "REDIS_DB",
	"redis.prefix":           "REDIS_PREFIX",
	"rate_limit.enabled":     "RATE_LIMIT_ENABLED",
	"rate_limit.requests":    "RATE_LIMIT_REQUESTS",
	"rate_limit.window":      "RATE_LIMIT_WINDOW",
	"rate_limit.burst":       "RATE_LIMIT_BURST",
	"image.max_size_bytes":   "IMAGE_MAX_SIZE_BYTES",
	"image.max_pixels":       "IMAGE_MAX_PIXELS",
	"image.max_dimension":    "IMAGE_MAX_DIMENSION",
	"image.jpeg_quality":     "IMAGE_JPEG_QUALITY",
	"cors.allowed_origins":   "CORS_ALLOWED_ORIGINS",
	"dedup_window":           "DEDUP_WINDOW",
	"log.level":              "LOG_LEVEL",
	"log.mode":               "LOG_MODE",
	"log.file":               "LOG_FILE",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用，不存在時只使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.OpenAI.APIKey = strings.TrimSpace(config.OpenAI.APIKey)
	config.Suggest.Engine = strings.ToLower(strings.TrimSpace(config.Suggest.Engine))
	config.Cache.Backend = strings.ToLower(strings.TrimSpace(config.Cache.Backend))

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "snapcook-api")

	// 伺服器設定
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 12*1024*1024)

	// 外部服務設定
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout", "30s")
	v.SetDefault("openai.max_retries", 2)
	v.SetDefault("openai.max_concurrency", 4)
	v.SetDefault("openai.queue_size", 32)

	// 建議設定
	v.SetDefault("suggest.engine", "ai")
	v.SetDefault("suggest.max_recipes", 5)

	// 快取設定
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "snapcook:completion:")

	// 限流設定
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 10)

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024)
	v.SetDefault("image.max_pixels", 40_000_000)
	v.SetDefault("image.max_dimension", 1024)
	v.SetDefault("image.jpeg_quality", 85)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	// 0 表示關閉重複提交防護
	v.SetDefault("dedup_window", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.mode", "")
	v.SetDefault("log.file", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if config.OpenAI.Timeout <= 0 {
		return fmt.Errorf("invalid openai timeout")
	}
	if config.OpenAI.MaxRetries < 0 {
		return fmt.Errorf("invalid openai max retries")
	}
	if config.OpenAI.MaxConcurrency < 0 || config.OpenAI.QueueSize < 0 {
		return fmt.Errorf("invalid openai concurrency settings")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", config.Server.Port)
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid server request timeout")
	}

	switch config.Suggest.Engine {
	case "ai", "local":
	default:
		return fmt.Errorf("unknown suggest engine %q", config.Suggest.Engine)
	}
	if config.Suggest.MaxRecipes <= 0 {
		return fmt.Errorf("invalid suggest max recipes")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Redis.Addr == "" {
				return fmt.Errorf("redis address is required for the redis cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit settings")
		}
		if config.RateLimit.Burst <= 0 {
			config.RateLimit.Burst = 1
		}
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}
	if config.Image.MaxPixels <= 0 {
		return fmt.Errorf("invalid image max pixels")
	}
	if config.Image.MaxDimension <= 0 {
		return fmt.Errorf("invalid image max dimension")
	}
	if config.Image.JPEGQuality < 1 || config.Image.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality %d", config.Image.JPEGQuality)
	}
	if config.DedupWindow < 0 {
		return fmt.Errorf("invalid dedup window")
	}

	return nil
}
