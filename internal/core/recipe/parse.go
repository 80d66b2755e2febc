package recipe

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"snapcook-api/internal/pkg/common"

	"go.uber.org/zap"
)

const defaultConfidence = 0.5

var (
	bulletPrefix  = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)
	trailingScore = regexp.MustCompile(`(?i)^(.*?)\s*[(\[]\s*(confidence|conf|score)?\s*[:=]?\s*([0-9]*\.?[0-9]+)\s*(%?)\s*[)\]]\s*$`)
	numberedStep  = regexp.MustCompile(`^\s*(?:step\s*)?\d+\s*[.):-]\s*`)
)

// ParseIngredients 寬鬆解析模型輸出的食材清單
//
// 接受 JSON 物件或陣列（可包在 code fence 中），欄位名稱可為 name/item/ingredient，
// 信心值可為數字、數字字串或百分比。JSON 無法解析時改用逐行格式：
// "name | amount | confidence" 或 "- name (0.9)"。沒有任何項目時回傳 ErrEmptyDetection。
func ParseIngredients(raw string) ([]Ingredient, error) {
	var items []any
	var decoded any
	if err := common.ParseLenientJSON(raw, &decoded); err == nil {
		items = ingredientItems(decoded)
	}

	out := make([]Ingredient, 0, len(items))
	dropped := 0
	for _, item := range items {
		ing, ok := ingredientFromValue(item)
		if !ok {
			dropped++
			continue
		}
		out = append(out, ing)
	}

	if len(out) == 0 {
		for _, line := range strings.Split(raw, "\n") {
			if ing, ok := parseIngredientLine(line); ok {
				out = append(out, ing)
			}
		}
	}

	if dropped > 0 {
		common.LogWarn("Dropped unparseable ingredient entries", zap.Int("dropped", dropped))
	}

	out = dedupeIngredients(out)
	if len(out) == 0 {
		return nil, ErrEmptyDetection
	}
	return out, nil
}

func ingredientItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, key := range []string{"ingredients", "items", "detected_ingredients", "results"} {
			if arr, ok := t[key].([]any); ok {
				return arr
			}
		}
		if firstString(t, "name", "item", "ingredient") != "" {
			return []any{t}
		}
	}
	return nil
}

func ingredientFromValue(v any) (Ingredient, bool) {
	switch t := v.(type) {
	case string:
		if ing, ok := parseIngredientLine(t); ok {
			return ing, true
		}
		name := cleanName(t)
		return Ingredient{Name: name, Confidence: defaultConfidence}, name != ""
	case map[string]any:
		name := cleanName(firstString(t, "name", "item", "ingredient", "label"))
		if name == "" {
			return Ingredient{}, false
		}
		amount := firstString(t, "amount", "quantity", "qty")
		if unit := firstString(t, "unit"); unit != "" && amount != "" && !strings.Contains(amount, unit) {
			amount += " " + unit
		}
		return Ingredient{
			Name:       name,
			Amount:     amount,
			Confidence: parseConfidence(firstValue(t, "confidence", "score", "probability", "certainty")),
		}, true
	}
	return Ingredient{}, false
}

// parseIngredientLine 解析單行文字格式
func parseIngredientLine(line string) (Ingredient, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "```") {
		return Ingredient{}, false
	}
	hadBullet := bulletPrefix.MatchString(line)
	line = bulletPrefix.ReplaceAllString(line, "")

	if strings.Contains(line, "|") {
		parts := strings.Split(strings.Trim(line, "| "), "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		name := cleanName(parts[0])
		if name == "" || strings.Trim(name, "-: ") == "" || strings.EqualFold(name, "name") {
			return Ingredient{}, false
		}
		ing := Ingredient{Name: name, Confidence: defaultConfidence}
		if len(parts) > 1 {
			ing.Amount = parts[1]
		}
		if len(parts) > 2 {
			ing.Confidence = parseConfidence(parts[2])
		}
		return ing, true
	}

	if m := trailingScore.FindStringSubmatch(line); m != nil {
		name, amount := splitAmount(m[1])
		if name == "" {
			return Ingredient{}, false
		}
		label, number, percent := m[2], m[3], m[4]
		if isScore(label, number, percent) {
			return Ingredient{Name: name, Amount: amount, Confidence: parseConfidence(number + percent)}, true
		}
		// "eggs (6)" 的數字是數量
		if amount == "" {
			amount = number
		}
		return Ingredient{Name: name, Amount: amount, Confidence: defaultConfidence}, true
	}

	if hadBullet {
		name, amount := splitAmount(line)
		if name == "" {
			return Ingredient{}, false
		}
		return Ingredient{Name: name, Amount: amount, Confidence: defaultConfidence}, true
	}

	return Ingredient{}, false
}

// isScore 括號內的數字只有帶標籤、百分比或不大於 1 時才視為信心值
func isScore(label, number, percent string) bool {
	if label != "" || percent != "" {
		return true
	}
	f, err := strconv.ParseFloat(number, 64)
	return err == nil && f <= 1
}

// splitAmount 拆開 "milk: 1 carton" 或 "milk - 1 carton"
func splitAmount(s string) (string, string) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{":", " - ", " – "} {
		if name, amount, ok := strings.Cut(s, sep); ok {
			return cleanName(name), strings.TrimSpace(amount)
		}
	}
	return cleanName(s), ""
}

func cleanName(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "*_`\"'.,;:")
	return strings.Join(strings.Fields(s), " ")
}

// parseConfidence 將各種信心值表示法轉為 [0,1]，無法解析時為預設值
func parseConfidence(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return defaultConfidence
		}
		f = n
	case int:
		f = float64(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "":
			return defaultConfidence
		case "high":
			return 0.9
		case "medium":
			return 0.6
		case "low":
			return 0.3
		}
		percent := strings.HasSuffix(s, "%")
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return defaultConfidence
		}
		if percent {
			n /= 100
		}
		f = n
	default:
		return defaultConfidence
	}
	return normalizeConfidence(f)
}

func normalizeConfidence(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	if f > 1 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f))
}

// dedupeIngredients 合併同名食材（不分大小寫），保留最高信心值
func dedupeIngredients(in []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(in))
	index := make(map[string]int, len(in))
	for _, ing := range in {
		key := strings.ToLower(ing.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, ing)
			continue
		}
		if ing.Confidence > out[i].Confidence {
			amount := out[i].Amount
			out[i] = ing
			if out[i].Amount == "" {
				out[i].Amount = amount
			}
		} else if out[i].Amount == "" {
			out[i].Amount = ing.Amount
		}
	}
	return out
}

// ParseRecipes 寬鬆解析模型輸出的食譜清單
//
// 標題可為 title/name/dish_name，步驟可為陣列或單一字串（instructions），
// matched_ingredients（或 needs）會對應到最接近的輸入名稱，無法對應者捨棄。
// limit 大於 0 時截斷結果。沒有任何食譜時回傳 ErrEmptySuggestion。
func ParseRecipes(raw string, names []string, limit int) ([]Recipe, error) {
	var decoded any
	if err := common.ParseLenientJSON(raw, &decoded); err != nil {
		common.LogWarn("Recipe response is not JSON", zap.Error(err), zap.Int("length", len(raw)))
		return nil, ErrEmptySuggestion
	}

	items := recipeItems(decoded)
	out := make([]Recipe, 0, len(items))
	dropped := 0
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		r, ok := recipeFromMap(m, names)
		if !ok {
			dropped++
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	if dropped > 0 {
		common.LogWarn("Dropped unparseable recipe entries", zap.Int("dropped", dropped))
	}
	if len(out) == 0 {
		return nil, ErrEmptySuggestion
	}
	return out, nil
}

func recipeItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, key := range []string{"recipes", "suggestions", "results", "items"} {
			if arr, ok := t[key].([]any); ok {
				return arr
			}
		}
		if firstString(t, "title", "name", "dish_name") != "" {
			return []any{t}
		}
	}
	return nil
}

func recipeFromMap(m map[string]any, names []string) (Recipe, bool) {
	title := cleanName(firstString(m, "title", "name", "dish_name", "recipe"))
	if title == "" {
		return Recipe{}, false
	}

	r := Recipe{
		Title:               title,
		Description:         strings.TrimSpace(firstString(m, "description", "summary", "dish_description")),
		Steps:               parseSteps(firstValue(m, "steps", "instructions", "directions", "method")),
		MatchedIngredients:  []string{},
		OptionalIngredients: []string{},
	}

	seen := map[string]bool{}
	for _, candidate := range stringList(firstValue(m, "matched_ingredients", "needs", "ingredients", "used_ingredients")) {
		name, ok := matchName(candidate, names)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		r.MatchedIngredients = append(r.MatchedIngredients, name)
	}

	r.OptionalIngredients = NormalizeNames(stringList(firstValue(m, "optional_ingredients", "optional", "missing_ingredients")))

	return r, true
}

// parseSteps 接受字串陣列、物件陣列或單一字串
func parseSteps(v any) []string {
	steps := []string{}
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := strings.TrimSpace(numberedStep.ReplaceAllString(bulletPrefix.ReplaceAllString(line, ""), "")); s != "" {
				steps = append(steps, s)
			}
		}
	case []any:
		for _, item := range t {
			var s string
			switch it := item.(type) {
			case string:
				s = it
			case map[string]any:
				s = firstString(it, "description", "instruction", "text", "step")
			}
			if s = strings.TrimSpace(numberedStep.ReplaceAllString(s, "")); s != "" {
				steps = append(steps, s)
			}
		}
	}
	return steps
}

// stringList 取出字串清單，物件元素取 name 欄位
func stringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case map[string]any:
				if s := firstString(it, "name", "item", "ingredient"); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch t := m[key].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		}
	}
	return ""
}
