package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"snapcook-api/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingProvider struct {
	release  chan struct{}
	started  chan struct{}
	active   atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	closed   atomic.Bool
	respText string
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		release:  make(chan struct{}),
		started:  make(chan struct{}, 16),
		respText: "ok",
	}
}

func (p *blockingProvider) Generate(ctx context.Context, _ *provider.Request) (*provider.Response, error) {
	p.calls.Add(1)
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	p.started <- struct{}{}

	select {
	case <-p.release:
		return &provider.Response{Content: p.respText}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *blockingProvider) GetModel() string { return "test-model" }
func (p *blockingProvider) GetTimeout() time.Duration { return time.Second }
func (p *blockingProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func TestManager_LimitsConcurrency(t *testing.T) {
	p := newBlockingProvider()
	m := NewManager(p, 2, 8)
	defer m.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := m.Generate(context.Background(), &provider.Request{Prompt: "x"})
			if err == nil && resp.Content != "ok" {
				err = errors.New("unexpected content")
			}
			errs <- err
		}()
	}

	<-p.started
	<-p.started
	close(p.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
	assert.Equal(t, int32(5), p.calls.Load())
	assert.Equal(t, 5, m.Status().ProcessedCount)
}

func TestManager_RejectsWhenFull(t *testing.T) {
	p := newBlockingProvider()
	m := NewManager(p, 1, 0)
	defer m.Close()

	go func() { _, _ = m.Generate(context.Background(), &provider.Request{}) }()
	<-p.started

	_, err := m.Generate(context.Background(), &provider.Request{})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.ErrorIs(t, err, provider.ErrRateLimited)

	close(p.release)
}

func TestManager_CallerCancelWhileWaiting(t *testing.T) {
	p := newBlockingProvider()
	m := NewManager(p, 1, 4)
	defer m.Close()

	go func() { _, _ = m.Generate(context.Background(), &provider.Request{}) }()
	<-p.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Generate(ctx, &provider.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	close(p.release)
}

func TestManager_Close(t *testing.T) {
	p := newBlockingProvider()
	m := NewManager(p, 2, 4)

	require.NoError(t, m.Close())
	assert.True(t, p.closed.Load())
	require.NoError(t, m.Close())

	_, err := m.Generate(context.Background(), &provider.Request{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "test-model", m.GetModel())
	assert.Equal(t, time.Second, m.GetTimeout())
}
