package recipe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"snapcook-api/internal/core/image"
	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

const ingredientSystemPrompt = "You are a careful kitchen assistant. Identify edible ingredients visibly present in the photo. " +
	"Avoid guessing brands or flavors you cannot see. Prefer generic ingredient names (e.g., 'milk', 'eggs', 'broccoli'). " +
	"Ignore utensils and containers unless their contents are clearly visible. Return JSON only, in the form " +
	`{"ingredients":[{"name":"milk","amount":"about half a carton","confidence":0.9}]} ` +
	"where confidence is a number between 0 and 1."

const ingredientUserPrompt = "List ingredients you can see and their approximate amount."

// 使用者提示的最大長度
const maxHintLength = 500

// IngredientService 食材識別服務
type IngredientService struct {
	ai     Completer
	images *image.Service
}

var _ Detector = (*IngredientService)(nil)

// NewIngredientService 創建新的食材識別服務
func NewIngredientService(ai Completer, images *image.Service) *IngredientService {
	return &IngredientService{
		ai:     ai,
		images: images,
	}
}

// Detect 識別圖片中的食材
func (s *IngredientService) Detect(ctx context.Context, req DetectionRequest) ([]Ingredient, error) {
	dataURL, err := s.images.Normalize(req.Image, req.ContentType)
	if err != nil {
		return nil, imageError(err)
	}

	raw, err := s.ai.Classify(ctx, dataURL, buildIngredientPrompt(req.UserHint), ingredientUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("ingredient detection failed: %w", err)
	}

	ingredients, err := ParseIngredients(raw)
	if err != nil {
		common.LogWarn("No ingredients parsed from response", zap.Int("response_length", len(raw)))
		return nil, err
	}

	common.LogInfo("Successfully identified ingredients", zap.Int("ingredients_count", len(ingredients)))
	return ingredients, nil
}

// buildIngredientPrompt 組合系統提示詞，附上使用者提示
func buildIngredientPrompt(hint string) string {
	hint = strings.Join(strings.Fields(hint), " ")
	if hint == "" {
		return ingredientSystemPrompt
	}
	if r := []rune(hint); len(r) > maxHintLength {
		hint = string(r[:maxHintLength])
	}
	return ingredientSystemPrompt + " User hints: " + hint
}

// imageError 將圖片驗證錯誤轉為輸入錯誤
func imageError(err error) error {
	switch {
	case errors.Is(err, image.ErrEmptyImage):
		return common.NewError(common.ErrCodeInvalidInput, "uploaded file is empty", http.StatusBadRequest, err)
	case errors.Is(err, image.ErrImageTooLarge):
		return common.NewError(common.ErrCodeInvalidInput, "uploaded image is too large", http.StatusBadRequest, err)
	case errors.Is(err, image.ErrImageDimensions):
		return common.NewError(common.ErrCodeInvalidInput, "uploaded image has too many pixels", http.StatusBadRequest, err)
	case errors.Is(err, image.ErrUnsupportedType):
		return common.NewError(common.ErrCodeInvalidInput, "file must be an image", http.StatusBadRequest, err)
	case errors.Is(err, image.ErrUndecodableImage):
		return common.NewError(common.ErrCodeInvalidInput, "uploaded file is not a readable image", http.StatusBadRequest, err)
	}
	return fmt.Errorf("failed to process image: %w", err)
}
