package overrides

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Kind describes the primitive type stored inside a Value.
type Kind string

const (
	// KindBool represents boolean parameters.
	KindBool Kind = "bool"
	// KindInteger represents whole numbers.
	KindInteger Kind = "integer"
	// KindFloat represents fractional numbers.
	KindFloat Kind = "float"
	// KindString represents plain UTF-8 strings.
	KindString Kind = "string"
)

// Value is a single configuration parameter value.
type Value struct {
	kind    Kind
	boolean bool
	number  decimal.Decimal
	special string
	text    string
}

// Bool builds a boolean value.
func Bool(v bool) Value {
	return Value{kind: KindBool, boolean: v}
}

// Int builds an integer value.
func Int(v int64) Value {
	return Value{kind: KindInteger, number: decimal.NewFromInt(v)}
}

// Float builds a fractional value. Infinities and NaN keep their TOML spelling.
func Float(v float64) Value {
	switch {
	case math.IsNaN(v):
		return Value{kind: KindFloat, special: "nan"}
	case math.IsInf(v, 1):
		return Value{kind: KindFloat, special: "inf"}
	case math.IsInf(v, -1):
		return Value{kind: KindFloat, special: "-inf"}
	}
	return Value{kind: KindFloat, number: decimal.NewFromFloat(v)}
}

// String builds a string value.
func String(v string) Value {
	return Value{kind: KindString, text: v}
}

// Kind reports the value type.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the raw string for string values and the literal otherwise.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.text
	}
	return v.Literal()
}

// Literal renders the value the way it is written into a TOML file.
func (v Value) Literal() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindInteger:
		return v.number.String()
	case KindFloat:
		if v.special != "" {
			return v.special
		}
		out := v.number.String()
		if !strings.ContainsAny(out, ".eE") {
			out += ".0"
		}
		return out
	case KindString:
		return quote(v.text)
	default:
		return `""`
	}
}

// Equal reports whether both values have the same kind and literal.
func (v Value) Equal(other Value) bool {
	return v.kind == other.kind && v.Literal() == other.Literal()
}

func (v Value) String() string {
	return v.Literal()
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// UnmarshalYAML decodes a scalar YAML node into a typed value.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		return errors.New("value node is nil")
	}
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		return v.UnmarshalYAML(node.Alias)
	}
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter values must be scalars", node.Line)
	}
	switch node.ShortTag() {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("line %d: decode bool: %w", node.Line, err)
		}
		*v = Bool(b)
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			dec, decErr := decimal.NewFromString(node.Value)
			if decErr != nil {
				return fmt.Errorf("line %d: decode integer: %w", node.Line, err)
			}
			*v = Value{kind: KindInteger, number: dec}
			return nil
		}
		*v = Int(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("line %d: decode float: %w", node.Line, err)
		}
		*v = Float(f)
	case "!!str":
		*v = String(node.Value)
	case "!!null":
		return fmt.Errorf("line %d: parameter value must not be null", node.Line)
	default:
		return fmt.Errorf("line %d: unsupported value tag %s", node.Line, node.ShortTag())
	}
	return nil
}
