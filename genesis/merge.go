// Package genesis deep-merges a declarative override document into a chain
// genesis document.
package genesis

import (
	"fmt"
	"sort"
)

// Document is a decoded JSON object.
type Document = map[string]any

// Merge returns a new document holding base with overrides applied. Objects
// present on both sides are merged recursively; any other override value
// (scalar, array, or an object replacing a non-object) replaces the base value
// wholesale. Neither input is modified.
func Merge(base, overrides Document) Document {
	out := make(Document, len(base)+len(overrides))
	for key, value := range base {
		out[key] = clone(value)
	}
	for key, value := range overrides {
		next, isObject := asObject(value)
		if isObject {
			if current, ok := asObject(out[key]); ok {
				out[key] = Merge(current, next)
				continue
			}
		}
		out[key] = clone(value)
	}
	return out
}

// Normalize converts a decoded YAML tree into JSON-compatible values: every
// mapping becomes a map[string]any, whatever its key type.
func Normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	default:
		return value
	}
}

func asObject(value any) (Document, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		obj, _ := Normalize(v).(map[string]any)
		return obj, true
	default:
		return nil, false
	}
}

func clone(value any) any {
	switch v := value.(type) {
	case map[string]any, map[any]any:
		obj, _ := asObject(v)
		out := make(map[string]any, len(obj))
		for key, item := range obj {
			out[key] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = clone(item)
		}
		return out
	default:
		return value
	}
}

func sortedKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
