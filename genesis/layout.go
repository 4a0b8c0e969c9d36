package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Layout records the key order of every object in a document as it was read.
// A nil Layout orders keys lexically.
type Layout struct {
	keys   []string
	fields map[string]*Layout
	array  bool
	items  []*Layout
}

// Merge returns the layout of a document merged with an override document of
// layout next. Keys keep their base position; keys new to an object follow in
// override order. Arrays take the override layout wholesale.
func (l *Layout) Merge(next *Layout) *Layout {
	if next == nil {
		return l
	}
	if l == nil || l.array || next.array {
		return next
	}
	out := &Layout{
		keys:   append([]string(nil), l.keys...),
		fields: make(map[string]*Layout, len(l.fields)+len(next.fields)),
	}
	seen := make(map[string]bool, len(l.keys))
	for _, key := range l.keys {
		seen[key] = true
	}
	for _, key := range next.keys {
		if !seen[key] {
			seen[key] = true
			out.keys = append(out.keys, key)
		}
	}
	for key, child := range l.fields {
		out.fields[key] = child
	}
	for key, child := range next.fields {
		out.fields[key] = out.fields[key].Merge(child)
	}
	return out
}

func (l *Layout) field(key string) *Layout {
	if l == nil {
		return nil
	}
	return l.fields[key]
}

func (l *Layout) item(i int) *Layout {
	if l == nil || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// order lists the keys of obj: known keys in recorded order, then the rest
// lexically.
func (l *Layout) order(obj Document) []string {
	keys := make([]string, 0, len(obj))
	placed := make(map[string]bool, len(obj))
	if l != nil {
		for _, key := range l.keys {
			if _, ok := obj[key]; ok && !placed[key] {
				placed[key] = true
				keys = append(keys, key)
			}
		}
	}
	if len(keys) == len(obj) {
		return keys
	}
	rest := make([]string, 0, len(obj)-len(keys))
	for key := range obj {
		if !placed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func layoutFromYAML(node *yaml.Node) *Layout {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil
		}
		return layoutFromYAML(node.Content[0])
	case yaml.AliasNode:
		return layoutFromYAML(node.Alias)
	case yaml.MappingNode:
		l := &Layout{fields: make(map[string]*Layout)}
		seen := make(map[string]bool)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if !seen[key] {
				seen[key] = true
				l.keys = append(l.keys, key)
			}
			if child := layoutFromYAML(node.Content[i+1]); child != nil {
				l.fields[key] = child
			}
		}
		return l
	case yaml.SequenceNode:
		l := &Layout{array: true, items: make([]*Layout, 0, len(node.Content))}
		for _, item := range node.Content {
			l.items = append(l.items, layoutFromYAML(item))
		}
		return l
	default:
		return nil
	}
}

// decodeValue reads one JSON value from the token stream together with its
// layout. Numbers arrive as json.Number when the decoder uses UseNumber.
func decodeValue(dec *json.Decoder) (any, *Layout, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil, nil
	}
	switch delim {
	case '{':
		obj := make(Document)
		l := &Layout{fields: make(map[string]*Layout)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, nil, fmt.Errorf("object key %v is not a string", keyTok)
			}
			value, child, err := decodeValue(dec)
			if err != nil {
				return nil, nil, err
			}
			if _, dup := obj[key]; !dup {
				l.keys = append(l.keys, key)
			}
			obj[key] = value
			if child != nil {
				l.fields[key] = child
			} else {
				delete(l.fields, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		return obj, l, nil
	case '[':
		items := []any{}
		l := &Layout{array: true}
		for dec.More() {
			value, child, err := decodeValue(dec)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, value)
			l.items = append(l.items, child)
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		return items, l, nil
	default:
		return nil, nil, fmt.Errorf("unexpected %q", delim)
	}
}

// expectEOF fails when anything but whitespace follows the decoded value.
func expectEOF(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected %v after the genesis object", tok)
}

// orderedObject is a JSON object emitted with its keys in a fixed order.
type orderedObject []orderedField

type orderedField struct {
	key   string
	value any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, field := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(field.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode(field.value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// arrange turns objects into orderedObject values following the layout.
func arrange(value any, l *Layout) any {
	if obj, ok := asObject(value); ok {
		out := make(orderedObject, 0, len(obj))
		for _, key := range l.order(obj) {
			out = append(out, orderedField{key: key, value: arrange(obj[key], l.field(key))})
		}
		return out
	}
	if items, ok := value.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = arrange(item, l.item(i))
		}
		return out
	}
	return value
}
