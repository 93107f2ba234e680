package attr

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the attribute value types.
// Only Null, String, Int, Bool, List and Map implement it.
// There is no float type: attribute equality must be exact and stable.
type Value interface {
	attrValue()
}

// Null is an explicit null attribute value.
type Null struct{}

func (Null) attrValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string attribute value.
type String string

func (String) attrValue() {}

// Int is an integer attribute value. Always int64.
type Int int64

func (Int) attrValue() {}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) attrValue() {}

// List is an ordered list of values.
type List []Value

func (List) attrValue() {}

// Map is a string-keyed set of values. A node's attribute set is a Map.
// Maps handed to the engine are treated as immutable.
// Use SortedKeys() for deterministic iteration.
type Map map[string]Value

func (Map) attrValue() {}

// Pair is a key/value pair for typed Map construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: attr.Of(attr.P("label", attr.String("a")), attr.P("width", attr.Int(4)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Of builds a Map from pairs. Later pairs overwrite earlier ones.
func Of(pairs ...Pair) Map {
	m := make(Map, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string ordering is UTF-8 and differs outside the BMP.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// Clone returns a shallow copy of the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Equal reports whether two values are structurally identical.
// A nil Value equals only another nil Value. An empty Map equals a nil Map.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		return ok && EqualMaps(av, bv)
	default:
		return false
	}
}

// EqualMaps reports whether two attribute sets hold the same keys and values.
func EqualMaps(a, b Map) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// FromAny converts decoded YAML/JSON/CUE data into a Value.
// Integral floats (as produced by some decoders) are accepted; fractional
// floats are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not attribute values: %v", val)
		}
		return Int(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not attribute values: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = ev
		}
		return list, nil
	case map[string]any:
		return MapFromAny(val)
	default:
		return nil, fmt.Errorf("unsupported attribute type: %T", v)
	}
}

// MapFromAny converts a decoded object into an attribute Map.
func MapFromAny(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, elem := range m {
		ev, err := FromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("[%q]: %w", k, err)
		}
		out[k] = ev
	}
	return out, nil
}

// ToAny converts a Value back into plain Go data (for JSON/YAML output).
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
