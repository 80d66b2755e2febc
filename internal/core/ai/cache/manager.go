package cache

import (
	"context"
	"sync"
	"time"

	"snapcook-api/internal/infrastructure/config"
	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 記憶體快取，具備 TTL、定期清理與最少使用淘汰
type Manager struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	store map[string]cacheEntry
	stats Stats

	stop      chan struct{}
	closeOnce sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       string
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 緩存統計
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

var _ Store = (*Manager)(nil)

// NewManager 創建新的緩存管理器
func NewManager(cfg *config.CacheConfig) *Manager {
	m := &Manager{
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     time.Now,
		store:   make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	if m.maxSize <= 0 {
		m.maxSize = 1000
	}

	if cfg.CleanupInterval > 0 {
		go m.startCleanup(cfg.CleanupInterval)
	}

	common.LogInfo("Memory cache initialized",
		zap.Int("max_size", m.maxSize),
		zap.Duration("ttl", m.ttl),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	return m
}

// Get 獲取緩存值
func (m *Manager) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.Misses++
		return "", false, nil
	}

	now := m.now()
	if now.After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.Evictions++
		m.stats.Misses++
		return "", false, nil
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.Hits++

	return entry.value, true, nil
}

// Set 設置緩存值
func (m *Manager) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		if m.cleanupLocked() == 0 {
			m.evictLeastUsedLocked()
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		lastAccess: now,
	}
	return nil
}

// Ping 記憶體快取永遠可用
func (m *Manager) Ping(context.Context) error {
	return nil
}

// startCleanup 啟動清理過期緩存的協程
func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			count := m.cleanupLocked()
			size := len(m.store)
			m.mu.Unlock()

			if count > 0 {
				common.LogDebug("Cleaned up expired cache entries",
					zap.Int("count", count),
					zap.Int("remaining_size", size),
				)
			}
		case <-m.stop:
			return
		}
	}
}

// cleanupLocked 清理過期的緩存，呼叫端須持有鎖
func (m *Manager) cleanupLocked() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
		}
	}
	m.stats.Evictions += int64(count)

	return count
}

// evictLeastUsedLocked 淘汰存取次數最少的項目，同次數時淘汰最久未使用者
func (m *Manager) evictLeastUsedLocked() {
	var victim string
	var oldestAccess time.Time
	lowestCount := -1

	for key, entry := range m.store {
		if lowestCount == -1 ||
			entry.accessCount < lowestCount ||
			(entry.accessCount == lowestCount && entry.lastAccess.Before(oldestAccess)) {
			victim = key
			oldestAccess = entry.lastAccess
			lowestCount = entry.accessCount
		}
	}

	if lowestCount != -1 {
		delete(m.store, victim)
		m.stats.Evictions++
	}
}

// GetStats 獲取緩存統計信息
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.stats
	stats.Size = len(m.store)
	return stats
}

// Close 停止清理協程並清空緩存
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)

		stats := m.GetStats()
		m.mu.Lock()
		m.store = make(map[string]cacheEntry)
		m.mu.Unlock()

		common.LogInfo("Memory cache closed",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Int64("evictions", stats.Evictions),
			zap.Int("size", stats.Size),
		)
	})
	return nil
}
