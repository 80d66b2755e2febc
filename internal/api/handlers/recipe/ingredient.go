package recipe

import (
	"net/http"

	"snapcook-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleDetectIngredients 處理食材識別請求
func (h *Handler) HandleDetectIngredients(c *gin.Context) {
	req, err := readUpload(c, h.maxImageBytes)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	result, err := h.analyzer.Detect(requestContext(c), req)
	if err != nil {
		common.LogError("Ingredient detection failed",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)))
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleAnalyzeAndSuggest 處理辨識加推薦請求
func (h *Handler) HandleAnalyzeAndSuggest(c *gin.Context) {
	req, err := readUpload(c, h.maxImageBytes)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	result, err := h.analyzer.AnalyzeAndSuggest(requestContext(c), req)
	if err != nil {
		common.LogError("Analyze and suggest failed",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)))
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
