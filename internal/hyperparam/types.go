package hyperparam

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/copyleftdev/hypertune/internal/errors"
)

// Domain names how a parameter's values are drawn.
type Domain string

const (
	// DomainUniform is a bounded continuous range.
	DomainUniform Domain = "uniform"
	// DomainCategorical is a finite set of unordered values.
	DomainCategorical Domain = "categorical"
)

// Type is the semantic type a parameter's value is delivered as.
type Type string

const (
	TypeUnknown Type = ""
	TypeInt     Type = "int"
	TypeFloat   Type = "float"
	TypeString  Type = "str"
	TypeBool    Type = "bool"
)

// ParseType resolves a type tag, accepting the common aliases.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TypeUnknown, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "real", "double":
		return TypeFloat, nil
	case "str", "string":
		return TypeString, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return TypeUnknown, errors.Errorf(errors.KindInvalidInput, "unknown parameter type %q", s)
	}
}

// TypeLookup resolves the declared type of a parameter by name.
type TypeLookup interface {
	TypeOf(name string) Type
}

// Coerce converts a backend-native value to t. Integers are rounded half to
// even. Values of unknown type pass through.
func (t Type) Coerce(v interface{}) (interface{}, error) {
	switch t {
	case TypeInt:
		if f, ok := ToFloat(v); ok {
			return RoundInt(f), nil
		}
	case TypeFloat:
		if f, ok := ToFloat(v); ok {
			return f, nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if f, ok := ToFloat(v); ok {
			return f != 0, nil
		}
	default:
		return v, nil
	}
	return nil, errors.Errorf(errors.KindTypeMismatch, "cannot convert %T to %s", v, t).WithParam("", v)
}

// RoundInt rounds f to the nearest integer, ties to even.
func RoundInt(f float64) int {
	return int(math.RoundToEven(f))
}

// ToFloat reports v as a float64 if it holds any Go numeric type.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
