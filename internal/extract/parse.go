package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// leafSchema is the expected shape of one extracted parameter. Leaves that
// fail it are treated as absent for the chunk, never as a chunk failure.
var leafSchema = jsonschema.MustCompileString("leaf.json", `{
	"type": "object",
	"properties": {
		"value": {"type": ["number", "string"]},
		"text": {"type": "string"},
		"unit": {"type": ["string", "null"]},
		"page_index": {"type": "integer", "minimum": 0},
		"bbox": {"type": "array", "items": {"type": "number"}, "minItems": 4, "maxItems": 4}
	},
	"required": ["value", "text", "page_index", "bbox"]
}`)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// parseResponse decodes a model response into per-parameter results. Only
// parameters in the known set are kept; leaves failing the expected shape
// are dropped. The second return value counts dropped leaves.
func parseResponse(raw string, known map[string]bool) (ChunkResults, int) {
	text := stripCodeBlock(raw)

	var body map[string]any
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		// Long responses are occasionally truncated mid-object; close the
		// open brackets and retry before giving up on the whole chunk.
		if err := json.Unmarshal([]byte(closeBrackets(text)), &body); err != nil {
			return ChunkResults{}, 0
		}
	}

	params, ok := body["parameters"].(map[string]any)
	if !ok {
		return ChunkResults{}, 0
	}

	results := make(ChunkResults, len(params))
	dropped := 0
	for name, rawLeaf := range params {
		if !known[name] {
			dropped++
			continue
		}
		res, ok := decodeLeaf(rawLeaf)
		if !ok {
			dropped++
			continue
		}
		results[name] = res
	}
	return results, dropped
}

func decodeLeaf(raw any) (Result, bool) {
	if err := leafSchema.Validate(raw); err != nil {
		return Result{}, false
	}
	leaf := raw.(map[string]any)

	res := Result{
		Text: leaf["text"].(string),
	}
	if unit, ok := leaf["unit"].(string); ok {
		res.Unit = strings.TrimSpace(unit)
	}
	// page_index and bbox passed the schema; numbers decode as float64.
	res.Page = int(leaf["page_index"].(float64))
	for i, v := range leaf["bbox"].([]any) {
		res.BBox[i] = v.(float64)
	}

	switch v := leaf["value"].(type) {
	case float64:
		res.Value = v
		res.Numeric = true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || strings.EqualFold(trimmed, "null") {
			return Result{}, false
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			res.Value = f
			res.Numeric = true
		} else {
			res.Numeric = false
		}
		if res.Text == "" {
			res.Text = trimmed
		}
	}
	if res.Text == "" {
		return Result{}, false
	}
	return res, true
}

// closeBrackets appends the closers needed to balance a truncated JSON
// document. String contents are skipped so braces inside values don't count.
func closeBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var sb strings.Builder
	sb.WriteString(s)
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}
