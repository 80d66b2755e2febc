package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"snapcook-api/internal/core/ai/provider"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Kind      string `json:"error_kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 對外錯誤信息
	Err     error  // 原始錯誤，不對外輸出
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidInput               = "INVALID_INPUT"
	ErrCodeExternalServiceUnavailable = "EXTERNAL_SERVICE_UNAVAILABLE"
	ErrCodeExternalServiceAuth        = "EXTERNAL_SERVICE_AUTH_ERROR"
	ErrCodeEmptyResult                = "EMPTY_RESULT"

	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// 認證錯誤對外只回傳固定訊息
const authErrorMessage = "external service configuration error"

// InvalidInput 創建輸入驗證錯誤
func InvalidInput(message string) *CustomError {
	return NewError(ErrCodeInvalidInput, message, http.StatusBadRequest, nil)
}

// EmptyResult 創建空結果錯誤，依政策以 200 + warning 回傳
func EmptyResult(message string) *CustomError {
	return NewError(ErrCodeEmptyResult, message, http.StatusOK, nil)
}

// IsKind 檢查錯誤鏈中是否有指定代碼的 CustomError
func IsKind(err error, code string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// AsCustomError 將任意錯誤轉換為 CustomError
func AsCustomError(err error) *CustomError {
	if err == nil {
		return nil
	}

	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, provider.ErrAuth):
		return NewError(ErrCodeExternalServiceAuth, authErrorMessage, http.StatusInternalServerError, err)
	case errors.Is(err, provider.ErrBadRequest):
		return NewError(ErrCodeInvalidInput, "the external service rejected the request input", http.StatusBadRequest, err)
	case errors.Is(err, provider.ErrTimeout):
		return NewError(ErrCodeExternalServiceUnavailable, "the external service timed out", http.StatusServiceUnavailable, err)
	case errors.Is(err, provider.ErrRateLimited):
		return NewError(ErrCodeExternalServiceUnavailable, "the external service is rate limiting requests", http.StatusServiceUnavailable, err)
	case errors.Is(err, provider.ErrNetwork):
		return NewError(ErrCodeExternalServiceUnavailable, "the external service is unreachable", http.StatusServiceUnavailable, err)
	case errors.Is(err, provider.ErrUpstream):
		return NewError(ErrCodeExternalServiceUnavailable, "the external service returned an error", http.StatusBadGateway, err)
	case errors.Is(err, provider.ErrMalformedResponse):
		return NewError(ErrCodeExternalServiceUnavailable, "the external service returned an unreadable response", http.StatusBadGateway, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrCodeRequestTimeout, "request timed out", http.StatusGatewayTimeout, err)
	}

	return NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, err)
}
