package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"snapcook-api/internal/core/ai/provider"
	"snapcook-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"cmpl-1","model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"{\"ingredients\":[]}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`

func newTestClient(t *testing.T, url string, timeout time.Duration, retries int) *Client {
	t.Helper()
	c := NewClient(provider.Config{
		APIKey:       "sk-test-key",
		Model:        "gpt-4o-mini",
		BaseURL:      url,
		Timeout:      timeout,
		MaxRetries:   retries,
		RetryWait:    5 * time.Millisecond,
		RetryMaxWait: 10 * time.Millisecond,
		MaxTokens:    256,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGenerate_SendsImageAndBearerToken(t *testing.T) {
	var got common.ChatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2*time.Second, 0)
	resp, err := c.Generate(context.Background(), &provider.Request{
		Operation:    "classify",
		SystemPrompt: "system",
		Prompt:       "list ingredients",
		ImageURL:     "data:image/jpeg;base64,AAAA",
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test-key", auth)
	assert.Equal(t, `{"ingredients":[]}`, resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	user := got.Messages[1]
	require.Len(t, user.Content, 2)
	assert.Equal(t, "image_url", user.Content[1].Type)
	require.NotNil(t, user.Content[1].ImageURL)
	assert.Equal(t, "low", user.Content[1].ImageURL.Detail)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, 256, got.MaxTokens)
}

func TestGenerate_RetriesServiceUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2*time.Second, 2)
	resp, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrAuth},
		{"rate limited", http.StatusTooManyRequests, provider.ErrRateLimited},
		{"bad request", http.StatusBadRequest, provider.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, 2*time.Second, 3)
			_, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

			var perr *provider.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, "nope", perr.Message)
		})
	}
}

func TestGenerate_UpstreamErrorAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2*time.Second, 2)
	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
	assert.ErrorIs(t, err, provider.ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerate_TimeoutAgainstHangingServer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, 200*time.Millisecond, 2)
	start := time.Now()
	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, provider.ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestGenerate_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>oops</html>`,
		"no choices":    `{"id":"x","choices":[]}`,
		"empty content": `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, 2*time.Second, 0)
			_, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
			assert.ErrorIs(t, err, provider.ErrMalformedResponse)
		})
	}
}

func TestGenerate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, 2*time.Second, 1)
	_, err := c.Generate(context.Background(), &provider.Request{Prompt: "eggs"})
	assert.ErrorIs(t, err, provider.ErrNetwork)
}

func TestGenerate_RejectsEmptyRequest(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", time.Second, 0)
	_, err := c.Generate(context.Background(), &provider.Request{})
	assert.ErrorIs(t, err, provider.ErrBadRequest)
}

func TestSanitizeBody(t *testing.T) {
	assert.Equal(t, "[IMAGE_DATA_REMOVED]", sanitizeBody([]byte(`{"url":"data:image/png;base64,AAAA"}`)))
	long := make([]byte, maxLoggedBody+50)
	for i := range long {
		long[i] = 'a'
	}
	out := sanitizeBody(long)
	assert.Len(t, out, maxLoggedBody+3)
}
