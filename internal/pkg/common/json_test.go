package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONBytes(t *testing.T) {
	var v struct {
		Count json.Number `json:"count"`
	}
	require.NoError(t, ParseJSONBytes([]byte(`{"count": 3}`), &v))
	assert.Equal(t, "3", v.Count.String())

	assert.Error(t, ParseJSONBytes([]byte(`{"count": 3} {"count": 4}`), &v))
	assert.Error(t, ParseJSONBytes([]byte(`{"count":`), &v))
}

func TestParseLenientJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    any
	}{
		{"plain object", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"fenced array", "Here you go:\n```json\n[\"eggs\", \"milk\"]\n```", []any{"eggs", "milk"}},
		{"object wrapping array", `Result: {"items":["eggs"]} done`, map[string]any{"items": []any{"eggs"}}},
		{"bracket in prose before object", `see [1] below: {"name":"eggs"}`, map[string]any{"name": "eggs"}},
		{"brace in prose before array", `note {sic} then ["eggs","milk"]`, []any{"eggs", "milk"}},
		{"unquoted keys and trailing comma", `{name: "eggs", tags: [1, 2,],}`, map[string]any{"name": "eggs", "tags": []any{float64(1), float64(2)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			require.NoError(t, ParseLenientJSON(tt.content, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLenientJSON_NoJSON(t *testing.T) {
	var got any
	assert.Error(t, ParseLenientJSON("I only see an empty shelf.", &got))
	assert.Error(t, ParseLenientJSON("{ this is not json", &got))
}
