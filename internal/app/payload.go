package app

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var quantityPlaceholders = []string{"{quantity}", "{qty}"}

// applyQuantity substitutes the requested quantity into an upstream URL or
// payload template.
func applyQuantity(template string, qty int) string {
	q := strconv.Itoa(qty)
	for _, p := range quantityPlaceholders {
		template = strings.ReplaceAll(template, p, q)
	}
	return template
}

// extractOutput turns a raw upstream body into the delivered payload.
//
// path is a dot separated key path (numeric segments index arrays). Any miss,
// including a body that is not JSON, falls back to the full body. When
// pattern is set, the payload is narrowed to the pattern's matches, again
// falling back to the unfiltered payload when nothing matches.
func extractOutput(body []byte, path, pattern string) []string {
	out := []string{string(body)}

	if path = strings.TrimSpace(path); path != "" {
		if v, ok := lookupPath(body, path); ok {
			out = normalizeOutput(v)
		}
	}

	if pattern == "" {
		return out
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return out
	}
	var matches []string
	for _, item := range out {
		matches = append(matches, re.FindAllString(item, -1)...)
	}
	if len(matches) == 0 {
		return out
	}
	return matches
}

func lookupPath(body []byte, path string) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var cur any
	if err := dec.Decode(&cur); err != nil {
		return nil, false
	}

	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// normalizeOutput wraps scalars in a one-element slice and stringifies
// array elements.
func normalizeOutput(v any) []string {
	if arr, ok := v.([]any); ok {
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			out = append(out, stringify(item))
		}
		return out
	}
	return []string{stringify(v)}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
