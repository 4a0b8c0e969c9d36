// Package overrides resolves layered parameter overrides for a single node.
//
// Overrides are declared in three tiers: global, per node type (role) and per
// node name. Resolution is a key-level last-write-wins merge: a later tier only
// replaces the keys it names and never drops keys set by an earlier tier.
package overrides

import (
	"sort"
	"strings"
)

// Key identifies a configuration parameter. A dotted key names a parameter
// inside a section; the section is everything before the last dot.
type Key string

// Split returns the section and parameter names. The section is empty for
// top-level parameters.
func (k Key) Split() (section, param string) {
	idx := strings.LastIndex(string(k), ".")
	if idx < 0 {
		return "", string(k)
	}
	return string(k[:idx]), string(k[idx+1:])
}

// Scoped reports whether the key addresses a parameter inside a section.
func (k Key) Scoped() bool {
	return strings.Contains(string(k), ".")
}

// Layer holds the overrides declared by one tier for one target file.
type Layer map[Key]Value

// Set is the resolved override set for one target file.
type Set map[Key]Value

// Keys returns the keys in lexical order.
func (s Set) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Resolve merges the three tiers in increasing precedence. Nil layers behave
// as empty layers and the inputs are never modified.
func Resolve(global, typeTier, specific Layer) Set {
	return merge(global, typeTier, specific)
}

func merge(layers ...Layer) Set {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}
	out := make(Set, size)
	for _, layer := range layers {
		for key, value := range layer {
			out[key] = value
		}
	}
	return out
}
