package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Model replies are free-form text that usually, but not reliably, contains
// JSON. The cascade below tries progressively looser recovery strategies;
// the first one producing a JSON object wins. A reply that defeats all of
// them still yields a result (every expected key null), never an error.

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// jsonSpan returns the first candidate substring of raw that decodes as a
// JSON object, trying: fenced code block, first-{ to last-} span, raw text.
func jsonSpan(raw string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if isJSONObject(m[1]) {
			return m[1], true
		}
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			span := raw[start : end+1]
			if isJSONObject(span) {
				return span, true
			}
		}
	}
	trimmed := strings.TrimSpace(raw)
	if isJSONObject(trimmed) {
		return trimmed, true
	}
	return "", false
}

func isJSONObject(s string) bool {
	var probe map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &probe) == nil
}

// ParseObject decodes the first recoverable JSON object in raw.
func ParseObject(raw string) (map[string]interface{}, bool) {
	span, ok := jsonSpan(raw)
	if !ok {
		return nil, false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// KeyLabel is one detected field proposal, in model output order.
type KeyLabel struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParseKeyLabels decodes a flat {"key": "Label", ...} object preserving key
// order, for AI-assisted field detection.
func ParseKeyLabels(raw string) ([]KeyLabel, bool) {
	span, ok := jsonSpan(raw)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(span)))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, isDelim := tok.(json.Delim); !isDelim || d != '{' {
		return nil, false
	}
	var out []KeyLabel
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, isStr := tok.(string)
		if !isStr {
			return nil, false
		}
		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return nil, false
		}
		if label := coerceString(val); label != nil {
			out = append(out, KeyLabel{Key: key, Label: *label})
		}
	}
	return out, len(out) > 0
}

// ParseKeyValues turns an arbitrary model reply into a value for every
// expected key. JSON recovery first; failing that, a per-key "key words:
// value" text scan. Keys the reply does not account for map to nil.
func ParseKeyValues(raw string, expected []string) map[string]*string {
	out := make(map[string]*string, len(expected))
	for _, key := range expected {
		out[key] = nil
	}

	if obj, ok := ParseObject(raw); ok {
		for _, key := range expected {
			if v, present := obj[key]; present {
				out[key] = coerceString(v)
			}
		}
		return out
	}

	// Text fallback: look for "invoice number: INV-042" style lines, with
	// the key converted to space-separated words.
	for _, key := range expected {
		words := strings.ReplaceAll(key, "_", " ")
		pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(words) + `\s*[:\-]?\s*([^\n,]+)`)
		if err != nil {
			continue
		}
		if m := pattern.FindStringSubmatch(raw); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				out[key] = &v
			}
		}
	}
	return out
}

// coerceString flattens a decoded JSON value to a string, or nil for JSON
// null. Non-scalar values are re-encoded compactly.
func coerceString(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			s := fmt.Sprintf("%v", t)
			return &s
		}
		s := string(raw)
		return &s
	}
}
