package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"snapcook-api/internal/core/ai/provider"
	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 等待中的外部呼叫已達上限
	ErrQueueFull = fmt.Errorf("%w: too many pending external calls", provider.ErrRateLimited)
	// ErrClosed 隊列已關閉
	ErrClosed = errors.New("queue manager is closed")
)

// job 隊列請求
type job struct {
	ctx    context.Context
	req    *provider.Request
	result chan result
}

// result 處理結果
type result struct {
	resp *provider.Response
	err  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 限制同時進行的外部呼叫數量
//
// 實作 provider.Provider，固定數量的 worker 依序處理排隊的請求。
type Manager struct {
	provider provider.Provider
	queue    chan *job
	done     chan struct{}
	workers  int

	processed atomic.Int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ provider.Provider = (*Manager)(nil)

// NewManager 創建新的隊列管理器並啟動 worker
func NewManager(p provider.Provider, workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize < 0 {
		maxSize = 0
	}

	m := &Manager{
		provider: p,
		queue:    make(chan *job, maxSize),
		done:     make(chan struct{}),
		workers:  workers,
	}

	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}

	common.LogInfo("External call queue started",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", maxSize),
	)
	return m
}

// Generate 排入隊列並等待結果
func (m *Manager) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}

	j := &job{ctx: ctx, req: req, result: make(chan result, 1)}

	// 有空閒 worker 時直接交付，否則放入緩衝區，滿了就拒絕
	select {
	case m.queue <- j:
	default:
		common.LogWarn("External call queue is full",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("workers", m.workers),
		)
		return nil, ErrQueueFull
	}

	select {
	case r := <-j.result:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrClosed
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case j := <-m.queue:
			m.process(j)
		}
	}
}

func (m *Manager) process(j *job) {
	defer m.processed.Add(1)

	// 呼叫者已放棄時不再打外部服務
	if err := j.ctx.Err(); err != nil {
		j.result <- result{err: err}
		return
	}

	resp, err := m.provider.Generate(j.ctx, j.req)
	j.result <- result{resp: resp, err: err}
}

// Status 獲取隊列狀態
func (m *Manager) Status() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(m.processed.Load()),
		MaxQueueSize:   cap(m.queue),
		Workers:        m.workers,
	}
}

// GetModel 獲取當前使用的模型名稱
func (m *Manager) GetModel() string {
	return m.provider.GetModel()
}

// GetTimeout 獲取單次請求超時時間
func (m *Manager) GetTimeout() time.Duration {
	return m.provider.GetTimeout()
}

// Close 停止 worker 並關閉底層提供者
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
	return m.provider.Close()
}
