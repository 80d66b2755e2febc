package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snapcook-api/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Service Redis 緩存服務
type Service struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Store = (*Service)(nil)

// NewService 創建 Redis 緩存服務並測試連線
func NewService(cfg *config.CacheConfig, redisCfg *config.RedisConfig) (*Service, error) {
	if redisCfg == nil {
		return nil, errors.New("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		ttl:    cfg.TTL,
		prefix: redisCfg.Prefix,
	}, nil
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get cache: %w", err)
	}
	return value, true, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}
