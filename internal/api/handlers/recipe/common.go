package recipe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"snapcook-api/internal/api/middleware"
	recipeAI "snapcook-api/internal/core/ai/service"
	recipeService "snapcook-api/internal/core/recipe"
	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 表單欄位
const (
	formFile     = "file"
	formUserHint = "user_hint"
)

// requestContext 回傳帶有請求 ID 的 context
func requestContext(c *gin.Context) context.Context {
	return recipeAI.WithRequestID(c.Request.Context(), requestid.Get(c))
}

// readUpload 讀取 multipart 上傳的圖片與提示
//
// 最多讀取 maxBytes+1 個位元組，超出部分交給圖片服務判定。
func readUpload(c *gin.Context, maxBytes int64) (recipeService.DetectionRequest, error) {
	var req recipeService.DetectionRequest

	header, err := c.FormFile(formFile)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, middleware.PayloadTooLarge(maxErr.Limit)
		}
		if errors.Is(err, http.ErrMissingFile) {
			return req, common.InvalidInput("an image file is required in the 'file' field")
		}
		return req, common.NewError(common.ErrCodeInvalidInput, "request must be multipart/form-data with a 'file' field",
			http.StatusBadRequest, err)
	}

	f, err := header.Open()
	if err != nil {
		return req, common.NewError(common.ErrCodeInvalidInput, "failed to open uploaded file", http.StatusBadRequest, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return req, common.NewError(common.ErrCodeInvalidInput, "failed to read uploaded file", http.StatusBadRequest, err)
	}

	req.Image = data
	req.ContentType = header.Header.Get("Content-Type")
	req.UserHint = c.PostForm(formUserHint)

	common.LogDebug("Upload received",
		zap.String("filename", header.Filename),
		zap.String("content_type", contentTypeForLog(req.ContentType)),
		zap.Int("size", len(data)),
		zap.Bool("has_hint", req.UserHint != ""),
		zap.String("request_id", requestid.Get(c)),
	)
	return req, nil
}

// contentTypeForLog 取得內容類型（用於日誌記錄）
func contentTypeForLog(contentType string) string {
	if contentType == "" {
		return "unknown"
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}
