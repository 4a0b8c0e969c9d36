// Package inventory extracts validator and sentry nodes from an Ansible-style
// inventory document.
package inventory

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/fleetconf/schema"
)

// Role is the node type derived from the host name prefix.
type Role string

const (
	RoleValidator Role = "validator"
	RoleSentry    Role = "sentry"
)

// Prefix returns the host name prefix identifying the role.
func (r Role) Prefix() string {
	return string(r) + "-"
}

// RoleOf derives the role from a host name. Names without a known prefix have
// no role.
func RoleOf(name string) (Role, bool) {
	for _, role := range []Role{RoleValidator, RoleSentry} {
		if strings.HasPrefix(name, role.Prefix()) {
			return role, true
		}
	}
	return "", false
}

// Node is one inventory host with a known role and address.
type Node struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Role    Role   `json:"role" yaml:"role"`
}

// Inventory holds the validator and sentry addresses keyed by host name.
type Inventory struct {
	Validators map[string]string
	Sentries   map[string]string
}

// Extract reads all.hosts.<name>.ansible_host from a decoded document. Hosts
// without an address or without a role prefix are skipped.
func Extract(doc map[string]any) Inventory {
	inv := Inventory{Validators: map[string]string{}, Sentries: map[string]string{}}
	all, _ := doc["all"].(map[string]any)
	hosts, _ := all["hosts"].(map[string]any)
	for name, raw := range hosts {
		role, ok := RoleOf(name)
		if !ok {
			continue
		}
		host, _ := raw.(map[string]any)
		address, _ := host["ansible_host"].(string)
		if address == "" {
			continue
		}
		switch role {
		case RoleValidator:
			inv.Validators[name] = address
		case RoleSentry:
			inv.Sentries[name] = address
		}
	}
	return inv
}

// Load reads, validates and extracts an inventory file.
func Load(path string) (Inventory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("read inventory: %w", err)
	}
	return Parse(path, raw)
}

// Parse validates and extracts inventory content. The name is only used in
// error messages.
func Parse(name string, raw []byte) (Inventory, error) {
	if err := schema.Validate(schema.Inventory, name, raw); err != nil {
		return Inventory{}, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Inventory{}, fmt.Errorf("unmarshal inventory %s: %w", name, err)
	}
	return Extract(doc), nil
}

// ValidatorNames returns the validator host names in lexical order.
func (inv Inventory) ValidatorNames() []string {
	return sortedNames(inv.Validators)
}

// SentryNames returns the sentry host names in lexical order.
func (inv Inventory) SentryNames() []string {
	return sortedNames(inv.Sentries)
}

// Nodes returns validators followed by sentries, each group in lexical order.
func (inv Inventory) Nodes() []Node {
	nodes := make([]Node, 0, len(inv.Validators)+len(inv.Sentries))
	for _, name := range inv.ValidatorNames() {
		nodes = append(nodes, Node{Name: name, Address: inv.Validators[name], Role: RoleValidator})
	}
	for _, name := range inv.SentryNames() {
		nodes = append(nodes, Node{Name: name, Address: inv.Sentries[name], Role: RoleSentry})
	}
	return nodes
}

// Address returns the address of a validator or sentry.
func (inv Inventory) Address(name string) (string, bool) {
	if addr, ok := inv.Validators[name]; ok {
		return addr, true
	}
	addr, ok := inv.Sentries[name]
	return addr, ok
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
