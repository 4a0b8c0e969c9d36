package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatBash = "bash"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type grouped struct {
	Validators map[string]string `json:"validators" yaml:"validators"`
	Sentries   map[string]string `json:"sentries" yaml:"sentries"`
}

// Render writes the inventory in the requested format. The bash format prints
// one ROLE:name:address line per node; json and yaml print the two groups as
// name to address maps.
func Render(w io.Writer, inv Inventory, format string) error {
	doc := grouped{Validators: nonNil(inv.Validators), Sentries: nonNil(inv.Sentries)}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatBash:
		for _, node := range inv.Nodes() {
			if _, err := fmt.Fprintf(w, "%s:%s:%s\n", strings.ToUpper(string(node.Role)), node.Name, node.Address); err != nil {
				return fmt.Errorf("write inventory: %w", err)
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode inventory: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode inventory: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
