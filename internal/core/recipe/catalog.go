package recipe

import (
	"context"
	"strings"

	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

// catalogRecipe 本地食譜
type catalogRecipe struct {
	Title        string
	Needs        []string
	Optional     []string
	Instructions string
}

// 至少需要多少比例的主要食材才算符合
const catalogMatchRatio = 0.5

var localRecipes = []catalogRecipe{
	{
		Title:        "Simple Veggie Stir-Fry",
		Needs:        []string{"broccoli", "carrot", "garlic", "soy sauce"},
		Optional:     []string{"onion", "ginger"},
		Instructions: "Stir-fry aromatics, add chopped veggies, splash soy + water, cook till crisp-tender.",
	},
	{
		Title:        "Cheesy Omelette",
		Needs:        []string{"eggs"},
		Optional:     []string{"cheese", "spinach"},
		Instructions: "Beat eggs, cook gently, add fillings, fold and serve.",
	},
	{
		Title:        "Fresh Salad",
		Needs:        []string{"lettuce"},
		Optional:     []string{"cucumber", "carrot", "cheese"},
		Instructions: "Chop vegetables, mix together, add dressing of choice.",
	},
	{
		Title:        "Pan-Seared Salmon",
		Needs:        []string{"salmon"},
		Optional:     []string{"lemon", "garlic", "butter", "herbs"},
		Instructions: "Season salmon fillets, heat oil in pan, cook skin-side down 4 mins, flip and cook 3 mins more. Finish with lemon and herbs.",
	},
	{
		Title:        "Creamy Mushroom Risotto",
		Needs:        []string{"mushroom", "rice"},
		Optional:     []string{"milk", "cheese", "onion", "garlic", "butter"},
		Instructions: "Sauté mushrooms and onions, add rice and stir. Gradually add warm milk/broth, stirring constantly until creamy. Finish with cheese.",
	},
	{
		Title:        "Roasted Potatoes",
		Needs:        []string{"potatoes"},
		Optional:     []string{"garlic", "herbs", "butter"},
		Instructions: "Cut potatoes into chunks, toss with oil and seasoning. Roast at 220°C (425°F) for 25-30 mins until golden and crispy.",
	},
	{
		Title:        "Salmon and Potato Bake",
		Needs:        []string{"salmon", "potatoes"},
		Optional:     []string{"milk", "cheese", "herbs"},
		Instructions: "Layer sliced potatoes in baking dish, place salmon on top. Pour milk over, season, and bake at 200°C (400°F) for 30-35 mins.",
	},
	{
		Title:        "Mushroom Cream Sauce",
		Needs:        []string{"mushroom", "milk"},
		Optional:     []string{"garlic", "butter", "herbs"},
		Instructions: "Sauté sliced mushrooms until golden, add garlic, pour in milk and simmer until thickened. Season with herbs.",
	},
	{
		Title:        "Tropical Pineapple Salsa",
		Needs:        []string{"pineapple"},
		Optional:     []string{"cucumber", "red chili pepper", "lime"},
		Instructions: "Dice pineapple and mix with chopped cucumber and chili. Add lime juice and let flavors meld for 15 mins.",
	},
	{
		Title:        "Creamy Mashed Potatoes",
		Needs:        []string{"potatoes", "milk"},
		Optional:     []string{"butter", "cheese"},
		Instructions: "Boil potatoes until tender, drain and mash. Gradually add warm milk and butter until smooth and creamy.",
	},
	{
		Title:        "Pineapple Glazed Salmon",
		Needs:        []string{"salmon", "pineapple"},
		Optional:     []string{"garlic", "soy sauce"},
		Instructions: "Make glaze with pineapple juice and soy sauce. Brush on salmon and bake at 200°C (400°F) for 12-15 mins until flaky.",
	},
	{
		Title:        "Mushroom and Potato Gratin",
		Needs:        []string{"mushroom", "potatoes", "milk"},
		Optional:     []string{"cheese", "garlic", "herbs"},
		Instructions: "Layer sliced potatoes and mushrooms, pour seasoned milk over layers. Top with cheese and bake until golden.",
	},
}

// CatalogSuggester 離線食譜推薦，不呼叫外部服務
type CatalogSuggester struct {
	recipes    []catalogRecipe
	maxRecipes int
}

var _ Suggester = (*CatalogSuggester)(nil)

// NewCatalogSuggester 使用內建食譜建立推薦器
func NewCatalogSuggester(maxRecipes int) *CatalogSuggester {
	return &CatalogSuggester{
		recipes:    localRecipes,
		maxRecipes: maxRecipes,
	}
}

// Suggest 回傳至少一半主要食材可用的食譜，依目錄順序
func (c *CatalogSuggester) Suggest(_ context.Context, names []string) ([]Recipe, error) {
	names = NormalizeNames(names)
	if len(names) == 0 {
		return nil, common.InvalidInput("ingredient list must not be empty")
	}

	available := availableSet(names)
	recipes := make([]Recipe, 0)
	for _, cr := range c.recipes {
		matched := make([]string, 0, len(cr.Needs))
		for _, need := range cr.Needs {
			if input, ok := available[nameKey(need)]; ok {
				matched = append(matched, input)
			}
		}
		if len(cr.Needs) == 0 || float64(len(matched))/float64(len(cr.Needs)) < catalogMatchRatio {
			continue
		}

		recipes = append(recipes, Recipe{
			Title:               cr.Title,
			Description:         "Needs " + strings.Join(cr.Needs, ", ") + ".",
			Steps:               splitInstructions(cr.Instructions),
			MatchedIngredients:  matched,
			OptionalIngredients: append([]string(nil), cr.Optional...),
		})
		if c.maxRecipes > 0 && len(recipes) == c.maxRecipes {
			break
		}
	}

	if len(recipes) == 0 {
		return nil, ErrEmptySuggestion
	}

	common.LogDebug("Catalog recipes matched", zap.Int("recipes_count", len(recipes)))
	return recipes, nil
}

// splitInstructions 以句號切分步驟
func splitInstructions(s string) []string {
	var steps []string
	for _, part := range strings.SplitAfter(s, ". ") {
		if part = strings.TrimSpace(part); part != "" {
			steps = append(steps, part)
		}
	}
	return steps
}
