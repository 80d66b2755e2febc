package recipe

import (
	"context"

	"snapcook-api/internal/pkg/common"
)

// Ingredient 辨識出的食材
type Ingredient struct {
	Name       string  `json:"name"`
	Amount     string  `json:"amount"`
	Confidence float64 `json:"confidence"`
}

// Recipe 推薦的食譜
type Recipe struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Steps               []string `json:"steps"`
	MatchedIngredients  []string `json:"matched_ingredients"`
	OptionalIngredients []string `json:"optional_ingredients"`
}

// DetectionRequest 食材辨識請求，處理完即丟棄
type DetectionRequest struct {
	Image       []byte
	ContentType string
	UserHint    string
}

// DetectionResult 食材辨識結果
type DetectionResult struct {
	Ingredients    []Ingredient `json:"ingredients"`
	ProcessingTime float64      `json:"processing_time"`
	Warning        string       `json:"warning,omitempty"`
}

// SuggestionResult 食譜推薦結果
type SuggestionResult struct {
	Recipes []Recipe `json:"recipes"`
	Warning string   `json:"warning,omitempty"`
}

// AnalysisResult 辨識加推薦的合併結果
type AnalysisResult struct {
	Ingredients    []Ingredient `json:"ingredients"`
	Recipes        []Recipe     `json:"recipes"`
	ProcessingTime float64      `json:"processing_time"`
	Warning        string       `json:"warning,omitempty"`
}

// Completer 外部推論服務的 classify / suggest 介面
type Completer interface {
	Classify(ctx context.Context, imageURL, systemPrompt, prompt string) (string, error)
	Suggest(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Detector 從圖片辨識食材
type Detector interface {
	Detect(ctx context.Context, req DetectionRequest) ([]Ingredient, error)
}

// Suggester 依食材名稱推薦食譜
type Suggester interface {
	Suggest(ctx context.Context, names []string) ([]Recipe, error)
}

// 空結果錯誤，依政策以 200 加 warning 回應
var (
	ErrEmptyDetection  = common.EmptyResult("no ingredients could be recognized in the image")
	ErrEmptySuggestion = common.EmptyResult("no recipes could be suggested for these ingredients")
)
