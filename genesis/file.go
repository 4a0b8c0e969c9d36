package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/fleetconf/schema"
)

// LoadOverrides reads and validates a YAML override document and records its
// key order. An empty file yields an empty document.
func LoadOverrides(path string) (Document, *Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read genesis config: %w", err)
	}
	if err := schema.Validate(schema.GenesisConfig, path, raw); err != nil {
		return nil, nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, nil, fmt.Errorf("unmarshal genesis config %s: %w", path, err)
	}
	if node.Kind == 0 {
		return Document{}, nil, nil
	}
	var decoded any
	if err := node.Decode(&decoded); err != nil {
		return nil, nil, fmt.Errorf("unmarshal genesis config %s: %w", path, err)
	}
	if decoded == nil {
		return Document{}, nil, nil
	}
	doc, ok := Normalize(decoded).(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("genesis config %s must be a mapping", path)
	}
	return doc, layoutFromYAML(&node), nil
}

// Decode parses a JSON genesis document and records its key order. Numbers
// are kept as json.Number so that integers beyond float64 precision are
// written back unchanged. Anything after the top-level object is rejected.
func Decode(raw []byte) (Document, *Layout, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	value, layout, err := decodeValue(dec)
	if err != nil {
		return nil, nil, fmt.Errorf("decode genesis: %w", err)
	}
	doc, ok := value.(Document)
	if !ok {
		return nil, nil, fmt.Errorf("genesis must be a JSON object")
	}
	if err := expectEOF(dec); err != nil {
		return nil, nil, fmt.Errorf("decode genesis: %w", err)
	}
	return doc, layout, nil
}

// Encode renders the document with two-space indentation and without HTML
// escaping. Object keys follow layout; keys it does not know are sorted.
func Encode(doc Document, layout *Layout) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arrange(doc, layout)); err != nil {
		return nil, fmt.Errorf("encode genesis: %w", err)
	}
	return buf.Bytes(), nil
}

// MergeFile merges the YAML override file into the JSON genesis file in place
// and returns the change summary of the overrides. Existing keys keep their
// position; new keys follow in override file order. The genesis file is only
// written once, after both inputs were read and merged.
func MergeFile(configPath, genesisPath string) ([]string, error) {
	overrides, overridesLayout, err := LoadOverrides(configPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(genesisPath)
	if err != nil {
		return nil, fmt.Errorf("stat genesis: %w", err)
	}
	raw, err := os.ReadFile(genesisPath)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	base, baseLayout, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", genesisPath, err)
	}
	encoded, err := Encode(Merge(base, overrides), baseLayout.Merge(overridesLayout))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(genesisPath, encoded, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write genesis: %w", err)
	}
	return Summarize(overrides, DefaultSummaryDepth), nil
}
