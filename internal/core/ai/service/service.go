package service

import (
	"context"
	"strings"
	"time"

	"snapcook-api/internal/core/ai/cache"
	"snapcook-api/internal/core/ai/provider"
	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

// 操作名稱，供日誌與指標使用
const (
	OperationClassify = "classify"
	OperationSuggest  = "suggest"
)

// Service AI 服務，在提供者之上加入選用的完成結果快取
type Service struct {
	provider provider.Provider
	cache    cache.Store
}

// NewService 創建 AI 服務，store 可為 nil
func NewService(p provider.Provider, store cache.Store) *Service {
	return &Service{
		provider: p,
		cache:    store,
	}
}

// Classify 傳送圖片與提示詞，回傳模型原始輸出
func (s *Service) Classify(ctx context.Context, imageURL, systemPrompt, prompt string) (string, error) {
	resp, err := s.ProcessRequest(ctx, &provider.Request{
		Operation:    OperationClassify,
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		ImageURL:     imageURL,
		ImageDetail:  "low",
		JSONMode:     true,
		Temperature:  0.2,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Suggest 傳送食材提示詞，回傳模型原始輸出
func (s *Service) Suggest(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := s.ProcessRequest(ctx, &provider.Request{
		Operation:    OperationSuggest,
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		JSONMode:     true,
		Temperature:  0.7,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ProcessRequest 統一對外方法，先查快取再呼叫提供者
func (s *Service) ProcessRequest(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)

	key := ""
	if s.cache != nil {
		key = cache.Key(s.provider.GetModel(), req.SystemPrompt, req.Prompt, req.ImageURL)
		value, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			common.LogWarn("Cache lookup failed", zap.String("operation", req.Operation), zap.Error(err))
		case ok:
			common.LogDebug("Cache hit", zap.String("operation", req.Operation))
			return &provider.Response{Content: value, Model: s.provider.GetModel(), CacheHit: true}, nil
		}
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	common.LogAICall(req.Operation, time.Since(start), err, requestID(ctx))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("Cache store failed", zap.String("operation", req.Operation), zap.Error(err))
		}
	}

	return resp, nil
}

// Ping 檢查快取後端是否可用
func (s *Service) Ping(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	return s.provider.Close()
}

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
