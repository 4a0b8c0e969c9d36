package genesis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultSummaryDepth limits how many object levels Summarize descends.
const DefaultSummaryDepth = 3

// Summarize lists the applied overrides as indented lines. Objects print their
// key and descend one level, lists of objects print their length and every
// other value prints inline. Nothing below maxDepth object levels is listed.
func Summarize(overrides Document, maxDepth int) []string {
	var lines []string
	summarize(&lines, overrides, "", maxDepth)
	return lines
}

func summarize(lines *[]string, doc Document, indent string, depth int) {
	if depth <= 0 {
		return
	}
	for _, key := range sortedKeys(doc) {
		value := doc[key]
		if obj, ok := asObject(value); ok {
			*lines = append(*lines, indent+key+":")
			summarize(lines, obj, indent+"  ", depth-1)
			continue
		}
		if items, ok := value.([]any); ok && len(items) > 0 {
			if _, isObject := asObject(items[0]); isObject {
				*lines = append(*lines, fmt.Sprintf("%s%s: [%d items]", indent, key, len(items)))
				continue
			}
		}
		*lines = append(*lines, fmt.Sprintf("%s%s: %s", indent, key, inline(value)))
	}
}

func inline(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return strings.TrimSpace(string(raw))
	default:
		return fmt.Sprint(v)
	}
}
