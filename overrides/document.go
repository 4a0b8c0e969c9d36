package overrides

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/fleetconf/schema"
)

// Target file namespaces used inside each tier.
const (
	TargetConfigTOML = "config_toml"
	TargetAppTOML    = "app_toml"
)

// DefaultListenAddress is used when no p2p.laddr override is declared.
const DefaultListenAddress = "tcp://0.0.0.0:26656"

const (
	globalNamespace   = "global"
	specificNamespace = "specific_nodes"
	listenAddressKey  = Key("p2p.laddr")
)

// Namespace maps target file names onto the layer declared for them.
type Namespace map[string]Layer

// UnmarshalYAML keeps every mapping entry as a target layer and ignores
// scalar entries such as descriptions.
func (n *Namespace) UnmarshalYAML(node *yaml.Node) error {
	if node == nil || isNull(node) {
		*n = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: namespace must be a mapping", node.Line)
	}
	out := make(Namespace)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		if valueNode.Kind != yaml.MappingNode && !isNull(valueNode) {
			continue
		}
		var layer Layer
		if err := valueNode.Decode(&layer); err != nil {
			return fmt.Errorf("%s: %w", keyNode.Value, err)
		}
		out[keyNode.Value] = layer
	}
	*n = out
	return nil
}

// Document is the decoded node configuration file. Every top-level key other
// than global and specific_nodes names a node type.
type Document struct {
	Global        Namespace
	Roles         map[string]Namespace
	SpecificNodes map[string]Namespace
}

// UnmarshalYAML splits the top-level mapping into its tiers.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node == nil || isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return errors.New("node configuration must be a mapping")
	}
	d.Roles = make(map[string]Namespace)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.TrimSpace(node.Content[i].Value)
		value := node.Content[i+1]
		switch name {
		case globalNamespace:
			if err := value.Decode(&d.Global); err != nil {
				return fmt.Errorf("global: %w", err)
			}
		case specificNamespace:
			if isNull(value) {
				continue
			}
			if err := value.Decode(&d.SpecificNodes); err != nil {
				return fmt.Errorf("specific_nodes: %w", err)
			}
		default:
			if value.Kind != yaml.MappingNode {
				continue
			}
			var ns Namespace
			if err := value.Decode(&ns); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			d.Roles[name] = ns
		}
	}
	return nil
}

// LoadDocument reads, validates and decodes a node configuration file.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node config: %w", err)
	}
	return ParseDocument(path, raw)
}

// ParseDocument validates and decodes node configuration content. The name is
// only used in error messages.
func ParseDocument(name string, raw []byte) (*Document, error) {
	if err := schema.Validate(schema.NodeConfig, name, raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal node config %s: %w", name, err)
	}
	return &doc, nil
}

// Targets maps target file names onto resolved override sets.
type Targets map[string]Set

// Names returns the target names in lexical order.
func (t Targets) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForNode resolves every target file declared in any tier for the node.
func (d *Document) ForNode(name, role string) Targets {
	if d == nil {
		return Targets{}
	}
	global := d.Global
	typeTier := d.Roles[role]
	specific := d.SpecificNodes[name]

	targets := make(Targets)
	for _, ns := range []Namespace{global, typeTier, specific} {
		for target := range ns {
			if _, ok := targets[target]; ok {
				continue
			}
			targets[target] = Resolve(global[target], typeTier[target], specific[target])
		}
	}
	return targets
}

// ListenAddress returns the globally configured P2P listen address, or the
// default when none is declared.
func (d *Document) ListenAddress() (string, error) {
	if d == nil {
		return DefaultListenAddress, nil
	}
	value, ok := d.Global[TargetConfigTOML][listenAddressKey]
	if !ok {
		return DefaultListenAddress, nil
	}
	if value.Kind() != KindString {
		return "", fmt.Errorf("%s must be a string, got %s", listenAddressKey, value.Kind())
	}
	return value.Text(), nil
}

// TargetFile maps a target namespace such as config_toml onto the file name it
// patches. Namespaces without the _toml suffix have no file.
func TargetFile(target string) (string, bool) {
	base, ok := strings.CutSuffix(target, "_toml")
	if !ok || base == "" {
		return "", false
	}
	return base + ".toml", true
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}
