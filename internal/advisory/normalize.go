package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse means no JSON document could be recovered from the
// engine output.
var ErrMalformedResponse = errors.New("malformed advisory response")

// actionPaths are the key paths searched, in order, for the actions array.
var actionPaths = [][]string{
	{"actions"},
	{"result", "actions"},
	{"output", "actions"},
	{"data", "actions"},
}

const maxDecodeDepth = 3

// Normalize is Parse that never fails: anything unusable yields an empty list.
func Normalize(raw string) []ActionItem {
	items, err := Parse(raw)
	if err != nil || items == nil {
		return []ActionItem{}
	}
	return items
}

// Parse recovers a document from raw engine output and extracts its action
// items. It returns ErrMalformedResponse only when no document is found; a
// document without actions yields an empty list.
func Parse(raw string) ([]ActionItem, error) {
	doc, ok := recoverDocument(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedResponse, len(raw))
	}
	return extractActions(doc), nil
}

// recoverDocument tries, in order: the cleaned text, the first balanced
// object or array span, and the same two steps on a string-unwrapped input.
func recoverDocument(raw string) (any, bool) {
	cleaned := clean(raw)
	if doc, ok := decodeContainer(cleaned); ok {
		return doc, true
	}
	if doc, ok := decodeSpan(cleaned); ok {
		return doc, true
	}

	var inner string
	if err := json.Unmarshal([]byte(cleaned), &inner); err != nil {
		return nil, false
	}
	inner = clean(inner)
	if doc, ok := decodeContainer(inner); ok {
		return doc, true
	}
	return decodeSpan(inner)
}

// clean drops code fences, a byte order mark and surrounding whitespace.
func clean(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	if strings.Contains(s, "```") {
		r := strings.NewReplacer("```json", " ", "```JSON", " ", "```", " ")
		s = r.Replace(s)
	}
	return strings.TrimSpace(s)
}

// decodeContainer parses s and accepts the result only if it is an object or array.
func decodeContainer(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	}
	return nil, false
}

// decodeSpan tries every balanced {...} span in order, then every [...] span.
func decodeSpan(s string) (any, bool) {
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		for i := 0; i < len(s); i++ {
			if s[i] != pair[0] {
				continue
			}
			end := balancedEnd(s, i, pair[0], pair[1])
			if end < 0 {
				continue
			}
			if doc, ok := decodeContainer(s[i : end+1]); ok {
				return doc, true
			}
		}
	}
	return nil, false
}

// balancedEnd returns the index of the delimiter closing s[start], skipping
// delimiters inside JSON strings, or -1 if the span never closes.
func balancedEnd(s string, start int, opening, closing byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func extractActions(doc any) []ActionItem {
	list, ok := findActionList(doc)
	if !ok {
		return []ActionItem{}
	}
	items := make([]ActionItem, 0, len(list))
	for _, el := range list {
		obj, ok := asObject(el)
		if !ok {
			continue
		}
		items = append(items, coerceAction(obj))
	}
	return items
}

func findActionList(doc any) ([]any, bool) {
	if list, ok := doc.([]any); ok {
		return list, true
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, path := range actionPaths {
		if list, ok := lookupList(root, path); ok {
			return list, true
		}
	}
	return nil, false
}

func lookupList(root map[string]any, path []string) ([]any, bool) {
	var cur any = root
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return asList(cur)
}

// asObject accepts an object or a string that decodes to one.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// asList accepts an array or a string that decodes to one.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case string:
		var list []any
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &list); err == nil && list != nil {
			return list, true
		}
	}
	return nil, false
}

func coerceAction(obj map[string]any) ActionItem {
	item := ActionItem{
		Title:     asText(obj["title"]),
		Why:       asText(obj["why"]),
		Steps:     coerceSteps(obj["steps"], 0),
		Priority:  normalizePriority(asText(obj["priority"])),
		OwnerHint: asText(obj["owner_hint"]),
	}
	if item.OwnerHint == "" {
		item.OwnerHint = DefaultOwnerHint
	}
	return item
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// coerceSteps flattens v into trimmed non-empty strings. Strings holding an
// encoded array are decoded; other multi-line strings are split into lines.
func coerceSteps(v any, depth int) []string {
	steps := []string{}
	switch t := v.(type) {
	case []any:
		for _, el := range t {
			switch s := el.(type) {
			case string:
				if nested, ok := decodeStepList(s, depth); ok {
					steps = append(steps, nested...)
				} else if s = strings.TrimSpace(s); s != "" {
					steps = append(steps, s)
				}
			case []any:
				if depth < maxDecodeDepth {
					steps = append(steps, coerceSteps(s, depth+1)...)
				}
			default:
				if s := asText(s); s != "" {
					steps = append(steps, s)
				}
			}
		}
	case string:
		if nested, ok := decodeStepList(t, depth); ok {
			return nested
		}
		for _, line := range strings.Split(t, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
			if line != "" {
				steps = append(steps, line)
			}
		}
	}
	return steps
}

func decodeStepList(s string, depth int) ([]string, bool) {
	if depth >= maxDecodeDepth {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}
	var list []any
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, false
	}
	return coerceSteps(list, depth+1), true
}

func normalizePriority(p string) string {
	switch strings.ToLower(p) {
	case "alta", "high", "alto":
		return PriorityHigh
	case "baixa", "low", "baixo":
		return PriorityLow
	}
	return PriorityMedium
}
