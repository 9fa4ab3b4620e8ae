package dialect

import (
	"encoding/json"
	"strconv"
	"strings"
)

type caseFn func(string) string

func toLower(s string) string { return strings.ToLower(s) }
func toUpper(s string) string { return strings.ToUpper(s) }

func formatInt64(n int64) string { return strconv.FormatInt(n, 10) }

// normalizeSchemaCase recurses a JSON-Schema document, applying fn to every
// "type" value it finds. Gemini's functionDeclarations.parameters dialect
// uppercases primitive type names (STRING, OBJECT, ARRAY) where every other
// provider's JSON-Schema expects the lowercase JSON-Schema spelling; this
// walks the whole tree (including nested "properties" and "items") so a
// tool schema survives a round trip through Gemini without losing type
// information on nested fields.
func normalizeSchemaCase(raw json.RawMessage, fn caseFn) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	walkSchema(v, fn)
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func walkSchema(v any, fn caseFn) {
	switch node := v.(type) {
	case map[string]any:
		if t, ok := node["type"].(string); ok {
			node["type"] = fn(t)
		}
		if child, ok := node["items"]; ok {
			walkSchema(child, fn)
		}
		if props, ok := node["properties"].(map[string]any); ok {
			for _, p := range props {
				walkSchema(p, fn)
			}
		}
	case []any:
		for _, item := range node {
			walkSchema(item, fn)
		}
	}
}
