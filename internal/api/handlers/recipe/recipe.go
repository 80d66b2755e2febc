package recipe

import (
	"errors"
	"net/http"

	"snapcook-api/internal/api/middleware"
	recipeService "snapcook-api/internal/core/recipe"
	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食材與食譜 API 處理器
type Handler struct {
	analyzer      *recipeService.Analyzer
	maxImageBytes int64
}

// NewHandler 創建處理器
func NewHandler(analyzer *recipeService.Analyzer, maxImageBytes int64) *Handler {
	return &Handler{
		analyzer:      analyzer,
		maxImageBytes: maxImageBytes,
	}
}

// HandleSuggestRecipes 依食材名稱推薦食譜，請求體為字串陣列
func (h *Handler) HandleSuggestRecipes(c *gin.Context) {
	var names []string
	if err := c.ShouldBindJSON(&names); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.WriteError(c, middleware.PayloadTooLarge(maxErr.Limit))
			return
		}
		common.LogWarn("Invalid suggestion request",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)))
		common.WriteError(c, common.NewError(common.ErrCodeInvalidInput,
			"request body must be a JSON array of ingredient names", http.StatusBadRequest, err))
		return
	}

	result, err := h.analyzer.Suggest(requestContext(c), names)
	if err != nil {
		common.LogError("Recipe suggestion failed",
			zap.Error(err),
			zap.Int("ingredients_count", len(names)),
			zap.String("request_id", requestid.Get(c)))
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
