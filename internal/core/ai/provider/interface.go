package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Operation    string // classify / suggest，僅供日誌與指標使用
	SystemPrompt string
	Prompt       string
	ImageURL     string // data URL，可為空
	ImageDetail  string // low / high / auto
	JSONMode     bool
	MaxTokens    int
	Temperature  float64
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	CacheHit bool   `json:"cache_hit"`
	Usage    struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取單次請求超時時間
	GetTimeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	MaxTokens    int
}

// 外部服務錯誤分類
var (
	ErrNetwork           = errors.New("external service network error")
	ErrTimeout           = errors.New("external service timeout")
	ErrAuth              = errors.New("external service authentication failed")
	ErrRateLimited       = errors.New("external service rate limited")
	ErrBadRequest        = errors.New("external service rejected request")
	ErrUpstream          = errors.New("external service upstream error")
	ErrMalformedResponse = errors.New("external service malformed response")
)

// Error 帶有狀態碼與分類的提供者錯誤
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is 讓 errors.Is 能比對分類
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}
