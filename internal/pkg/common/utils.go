package common

import (
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// WriteErrorResponse 寫入結構化錯誤響應，回傳使用的狀態碼
func WriteErrorResponse(w http.ResponseWriter, requestID string, err error) int {
	ce := AsCustomError(err)
	if ce == nil {
		ce = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ce.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Kind:      ce.Code,
		Message:   ce.Message,
		RequestID: requestID,
	})
	return ce.Status
}

// WriteError 在 gin 中寫入錯誤響應並中止後續處理
func WriteError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	WriteErrorResponse(c.Writer, requestid.Get(c), err)
	c.Abort()
}
