// Package schema validates declarative input documents against CUE
// definitions before they are decoded.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// Names of the built-in schemas.
const (
	NodeConfig    = "node_config"
	Inventory     = "inventory"
	GenesisConfig = "genesis_config"
)

// Definition pairs CUE source with the definition documents must satisfy.
type Definition struct {
	Source     string
	Definition string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Definition)
)

// Register adds a named schema. Registering a name twice is an error.
func Register(name string, def Definition) error {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return errors.New("schema name must not be empty")
	}
	if strings.TrimSpace(def.Source) == "" {
		return errors.New("schema source must not be empty")
	}
	if !strings.HasPrefix(def.Definition, "#") {
		return fmt.Errorf("schema %s: definition %q must start with '#'", normalized, def.Definition)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[normalized]; exists {
		return fmt.Errorf("schema %s already registered", normalized)
	}
	registry[normalized] = def
	return nil
}

// Lookup returns the schema registered under name.
func Lookup(name string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := registry[strings.TrimSpace(name)]
	return def, ok
}

// Validate checks a YAML (or JSON) document against the named schema. The file
// name is only used in error messages.
func Validate(name, filename string, raw []byte) error {
	def, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	ctx := cuecontext.New()
	compiled := ctx.CompileString(def.Source, cue.Filename(name+".cue"))
	if err := compiled.Err(); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	target := compiled.LookupPath(cue.ParsePath(def.Definition))
	if err := target.Err(); err != nil {
		return fmt.Errorf("schema %s: lookup %s: %w", name, def.Definition, err)
	}

	file, err := cueyaml.Extract(filename, raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	document := ctx.BuildFile(file)
	if err := document.Err(); err != nil {
		return fmt.Errorf("build %s: %w", filename, err)
	}
	if err := target.Unify(document).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s does not match %s schema: %w", filename, name, err)
	}
	return nil
}

// ResetForTest restores the registry to the built-in schemas.
func ResetForTest() {
	registryMu.Lock()
	registry = make(map[string]Definition)
	registryMu.Unlock()
	registerBuiltins()
}
