package recipe

import (
	"context"
	"time"

	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

// 回應中的 warning 訊息
const (
	WarningNoIngredients    = "no ingredients could be recognized in the image"
	WarningNoRecipes        = "no recipes could be suggested for these ingredients"
	WarningSuggestionFailed = "ingredients were detected but recipe suggestion failed"
)

// Analyzer 請求協調器，組合辨識與推薦兩個步驟
type Analyzer struct {
	detector  Detector
	suggester Suggester
	now       func() time.Time
}

// NewAnalyzer 創建協調器
func NewAnalyzer(detector Detector, suggester Suggester) *Analyzer {
	return &Analyzer{
		detector:  detector,
		suggester: suggester,
		now:       time.Now,
	}
}

// Detect 只做食材辨識
func (a *Analyzer) Detect(ctx context.Context, req DetectionRequest) (*DetectionResult, error) {
	if len(req.Image) == 0 {
		return nil, common.InvalidInput("an image file is required")
	}

	start := a.now()
	ingredients, err := a.detector.Detect(ctx, req)
	result := &DetectionResult{Ingredients: []Ingredient{}}
	switch {
	case common.IsKind(err, common.ErrCodeEmptyResult):
		result.Warning = WarningNoIngredients
	case err != nil:
		return nil, err
	default:
		result.Ingredients = ingredients
	}
	result.ProcessingTime = a.now().Sub(start).Seconds()

	return result, nil
}

// Suggest 只做食譜推薦
func (a *Analyzer) Suggest(ctx context.Context, names []string) (*SuggestionResult, error) {
	names = NormalizeNames(names)
	if len(names) == 0 {
		return nil, common.InvalidInput("ingredient list must not be empty")
	}

	recipes, err := a.suggester.Suggest(ctx, names)
	result := &SuggestionResult{Recipes: []Recipe{}}
	switch {
	case common.IsKind(err, common.ErrCodeEmptyResult):
		result.Warning = WarningNoRecipes
	case err != nil:
		return nil, err
	default:
		result.Recipes = recipes
	}

	return result, nil
}

// AnalyzeAndSuggest 先辨識再推薦
//
// 辨識失敗時整個請求失敗；辨識成功但推薦失敗時回傳食材與空的食譜清單並附上 warning。
func (a *Analyzer) AnalyzeAndSuggest(ctx context.Context, req DetectionRequest) (*AnalysisResult, error) {
	if len(req.Image) == 0 {
		return nil, common.InvalidInput("an image file is required")
	}

	start := a.now()
	result := &AnalysisResult{Ingredients: []Ingredient{}, Recipes: []Recipe{}}

	ingredients, err := a.detector.Detect(ctx, req)
	switch {
	case common.IsKind(err, common.ErrCodeEmptyResult):
		result.Warning = WarningNoIngredients
		result.ProcessingTime = a.now().Sub(start).Seconds()
		return result, nil
	case err != nil:
		return nil, err
	}
	result.Ingredients = ingredients

	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, ing.Name)
	}

	recipes, err := a.suggester.Suggest(ctx, names)
	switch {
	case common.IsKind(err, common.ErrCodeEmptyResult):
		result.Warning = WarningNoRecipes
	case err != nil:
		common.LogWarn("Recipe suggestion failed after detection, returning ingredients only",
			zap.Int("ingredients_count", len(ingredients)),
			zap.Error(err),
		)
		result.Warning = WarningSuggestionFailed
	default:
		result.Recipes = recipes
	}
	result.ProcessingTime = a.now().Sub(start).Seconds()

	return result, nil
}
