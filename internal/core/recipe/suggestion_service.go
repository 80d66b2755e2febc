package recipe

import (
	"context"
	"fmt"
	"strings"

	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

const suggestionSystemPrompt = "You are a helpful home cook. Suggest practical recipes that use predominantly the ingredients the user has. " +
	"Assume common pantry staples (salt, pepper, oil, water) are available. Return JSON only."

// SuggestionService 食譜推薦服務
type SuggestionService struct {
	ai         Completer
	maxRecipes int
}

var _ Suggester = (*SuggestionService)(nil)

// NewSuggestionService 創建新的食譜推薦服務
func NewSuggestionService(ai Completer, maxRecipes int) *SuggestionService {
	if maxRecipes <= 0 {
		maxRecipes = 5
	}
	return &SuggestionService{
		ai:         ai,
		maxRecipes: maxRecipes,
	}
}

// Suggest 根據可用食材推薦食譜，保留模型回傳的順序
func (s *SuggestionService) Suggest(ctx context.Context, names []string) ([]Recipe, error) {
	names = NormalizeNames(names)
	if len(names) == 0 {
		return nil, common.InvalidInput("ingredient list must not be empty")
	}

	raw, err := s.ai.Suggest(ctx, suggestionSystemPrompt, buildSuggestionPrompt(names, s.maxRecipes))
	if err != nil {
		return nil, fmt.Errorf("recipe suggestion failed: %w", err)
	}

	recipes, err := ParseRecipes(raw, names, s.maxRecipes)
	if err != nil {
		return nil, err
	}

	common.LogInfo("Successfully suggested recipes",
		zap.Int("ingredients_count", len(names)),
		zap.Int("recipes_count", len(recipes)),
	)
	return recipes, nil
}

// buildSuggestionPrompt 組合食譜推薦提示詞
func buildSuggestionPrompt(names []string, maxRecipes int) string {
	var b strings.Builder
	b.WriteString("Available ingredients:\n")
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `
Suggest up to %d recipes.
Requirements:
1. Use predominantly the listed ingredients; keep extra ingredients to a minimum.
2. matched_ingredients must only contain names copied from the list above.
3. Put anything not in the list into optional_ingredients.
4. Steps must be short, concrete instructions.

Respond with JSON in this shape:
{"recipes":[{"title":"...","description":"...","steps":["..."],"matched_ingredients":["..."],"optional_ingredients":["..."]}]}`, maxRecipes)
	return b.String()
}
