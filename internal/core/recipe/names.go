package recipe

import (
	"strings"
	"unicode"
)

// NormalizeNames 去除空白與重複（不分大小寫），保留原始順序
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// normalizeName 轉小寫，非字母數字字元視為分隔
func normalizeName(input string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// nameKey 比對用的鍵，每個詞轉為單數
func nameKey(input string) string {
	tokens := strings.Fields(normalizeName(input))
	for i, t := range tokens {
		tokens[i] = singularize(t)
	}
	return strings.Join(tokens, " ")
}

func singularize(word string) string {
	switch {
	case len(word) <= 3:
		return word
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "oes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

// matchName 找出與候選名稱最接近的輸入名稱
//
// 先比對完整鍵，再以詞彙重疊比例挑選，重疊須達一半以上。
func matchName(candidate string, inputs []string) (string, bool) {
	ck := nameKey(candidate)
	if ck == "" {
		return "", false
	}
	for _, in := range inputs {
		if nameKey(in) == ck {
			return in, true
		}
	}

	ctoks := strings.Fields(ck)
	best, bestScore := "", 0.0
	for _, in := range inputs {
		itoks := strings.Fields(nameKey(in))
		overlap := 0
		for _, c := range ctoks {
			for _, t := range itoks {
				if c == t {
					overlap++
					break
				}
			}
		}
		if overlap == 0 {
			continue
		}
		score := float64(overlap) / float64(max(len(ctoks), len(itoks)))
		if score > bestScore {
			best, bestScore = in, score
		}
	}
	if bestScore >= 0.5 {
		return best, true
	}
	return "", false
}

// availableSet 建立可用食材的鍵集合
func availableSet(names []string) map[string]string {
	set := make(map[string]string, len(names))
	for _, n := range names {
		if k := nameKey(n); k != "" {
			if _, ok := set[k]; !ok {
				set[k] = n
			}
		}
	}
	return set
}
