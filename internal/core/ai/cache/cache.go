package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"snapcook-api/internal/infrastructure/config"
)

// Store 完成結果快取介面
type Store interface {
	// Get 取得快取內容，未命中時 ok 為 false
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key 由模型、提示詞與圖片產生快取鍵
func Key(model, systemPrompt, prompt, image string) string {
	h := sha256.New()
	for _, part := range []string{model, systemPrompt, prompt, image} {
		// 以長度前綴分隔，避免不同欄位拼接後碰撞
		fmt.Fprintf(h, "%d:", len(part))
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New 依設定建立快取，未啟用時回傳 nil
func New(cfg *config.CacheConfig, redisCfg *config.RedisConfig) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "redis":
		svc, err := NewService(cfg, redisCfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "", "memory":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
