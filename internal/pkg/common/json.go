package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// ParseJSONBytes 解析 JSON 位元組切片到結構體，不允許多餘資料
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var (
	unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingComma      = regexp.MustCompile(`,\s*([}\]])`)
	codeFence          = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// StripTrailingCommas 移除物件與陣列結尾多餘的逗號
func StripTrailingCommas(raw string) string {
	return trailingComma.ReplaceAllString(raw, "$1")
}

// jsonCandidates 去除 code fence 後，分別取第一個 { 到最後一個 }、
// 第一個 [ 到最後一個 ] 的片段，較長者在前
func jsonCandidates(content string) []string {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	var out []string
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(content, pair[0])
		end := strings.LastIndex(content, pair[1])
		if start != -1 && end > start {
			out = append(out, content[start:end+1])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// ParseLenientJSON 盡量解析模型輸出的 JSON，失敗時嘗試修補常見格式問題
//
// 物件與陣列兩種片段都會嘗試，前置文字中的括號不會蓋掉真正的 JSON。
func ParseLenientJSON(content string, v interface{}) error {
	candidates := jsonCandidates(content)
	if len(candidates) == 0 {
		return fmt.Errorf("no JSON found in content")
	}

	var firstErr error
	for _, fragment := range candidates {
		err := json.Unmarshal([]byte(fragment), v)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		repaired := StripTrailingCommas(QuoteJSONKeys(fragment))
		if json.Unmarshal([]byte(repaired), v) == nil {
			return nil
		}
	}
	return firstErr
}
