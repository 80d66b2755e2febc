package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"snapcook-api/internal/core/ai/provider"
	"snapcook-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL OpenAI 相容 API 位址
	DefaultBaseURL = "https://api.openai.com/v1"

	completionsPath = "/chat/completions"
	maxLoggedBody   = 300
)

// Client OpenAI 相容 chat completions 客戶端
type Client struct {
	client  *resty.Client
	config  provider.Config
	timeout time.Duration
}

var _ provider.Provider = (*Client)(nil)

// NewClient 創建新的客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 4 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "SnapCook").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(shouldRetry)

	return &Client{
		client:  client,
		config:  cfg,
		timeout: cfg.Timeout,
	}
}

// shouldRetry 只在網路錯誤與 502/503/504 時重試
func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
	}
	if r == nil {
		return false
	}
	switch r.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// buildRequest 構建 chat completions 請求
func (c *Client) buildRequest(req *provider.Request) *common.ChatRequest {
	chat := &common.ChatRequest{
		Model:       c.config.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if chat.MaxTokens == 0 {
		chat.MaxTokens = c.config.MaxTokens
	}
	if req.JSONMode {
		chat.ResponseFormat = &common.ResponseFormat{Type: "json_object"}
	}

	if req.SystemPrompt != "" {
		chat.Messages = append(chat.Messages, common.Message{
			Role:    "system",
			Content: []common.Content{{Type: "text", Text: req.SystemPrompt}},
		})
	}

	user := common.Message{
		Role:    "user",
		Content: []common.Content{{Type: "text", Text: req.Prompt}},
	}
	if req.ImageURL != "" {
		detail := req.ImageDetail
		if detail == "" {
			detail = "low"
		}
		user.Content = append(user.Content, common.Content{
			Type:     "image_url",
			ImageURL: &common.ImageURL{URL: req.ImageURL, Detail: detail},
		})
	}
	chat.Messages = append(chat.Messages, user)

	return chat
}

// Generate 發送一次 chat completion 並回傳助理訊息內容
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req == nil || (req.Prompt == "" && req.ImageURL == "") {
		return nil, &provider.Error{Kind: provider.ErrBadRequest, Message: "empty request"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := c.buildRequest(req)
	start := time.Now()

	common.LogDebug("Sending request to external service",
		zap.String("operation", req.Operation),
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Bool("has_image", req.ImageURL != ""),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(completionsPath)

	result, err := c.handleResponse(resp, err)
	observeCall(req.Operation, time.Since(start), err)
	if err != nil {
		common.LogError("External service request failed",
			zap.String("operation", req.Operation),
			zap.String("model", body.Model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	common.LogInfo("External service request succeeded",
		zap.String("operation", req.Operation),
		zap.String("model", result.Model),
		zap.Int("content_length", len(result.Content)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// handleResponse 將傳輸錯誤與狀態碼轉換為分類錯誤
func (c *Client) handleResponse(resp *resty.Response, err error) (*provider.Response, error) {
	if err != nil {
		return nil, classifyTransportError(err)
	}

	status := resp.StatusCode()
	if status != http.StatusOK {
		return nil, &provider.Error{
			Kind:       kindForStatus(status),
			StatusCode: status,
			Message:    errorMessage(resp.Body()),
		}
	}

	var chat common.ChatResponse
	if err := common.ParseJSONBytes(resp.Body(), &chat); err != nil {
		return nil, &provider.Error{
			Kind:       provider.ErrMalformedResponse,
			StatusCode: status,
			Message:    sanitizeBody(resp.Body()),
			Err:        err,
		}
	}
	if len(chat.Choices) == 0 {
		return nil, &provider.Error{Kind: provider.ErrMalformedResponse, StatusCode: status, Message: "no choices in response"}
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if content == "" {
		return nil, &provider.Error{Kind: provider.ErrMalformedResponse, StatusCode: status, Message: "empty content in response"}
	}

	result := &provider.Response{
		Content: content,
		Model:   chat.Model,
	}
	if result.Model == "" {
		result.Model = c.config.Model
	}
	result.Usage.PromptTokens = chat.Usage.PromptTokens
	result.Usage.CompletionTokens = chat.Usage.CompletionTokens
	result.Usage.TotalTokens = chat.Usage.TotalTokens

	return result, nil
}

// classifyTransportError 區分逾時與其他網路錯誤
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &provider.Error{Kind: provider.ErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &provider.Error{Kind: provider.ErrTimeout, Err: err}
	}
	return &provider.Error{Kind: provider.ErrNetwork, Err: err}
}

// kindForStatus 依 HTTP 狀態碼分類
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.ErrAuth
	case status == http.StatusTooManyRequests:
		return provider.ErrRateLimited
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge ||
		status == http.StatusUnsupportedMediaType || status == http.StatusUnprocessableEntity:
		return provider.ErrBadRequest
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return provider.ErrTimeout
	default:
		return provider.ErrUpstream
	}
}

// errorMessage 取出錯誤訊息，找不到時回傳清理後的內容
func errorMessage(body []byte) string {
	var apiErr common.APIError
	if err := common.ParseJSONBytes(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return sanitizeBody([]byte(apiErr.Error.Message))
	}
	return sanitizeBody(body)
}

// sanitizeBody 清理響應內容，移除圖片數據並截斷
func sanitizeBody(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") || strings.Contains(s, "base64") {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}
