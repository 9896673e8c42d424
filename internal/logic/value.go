// Package logic implements the rule condition language: a generic value
// model, a small expression AST, and a deterministic evaluator.
//
// Requirement conditions arrive as nested JSON-like structures. They are
// normalized into Value trees, parsed into a closed AST, and evaluated
// against a case's fact map. Every failure mode is a typed error; nothing
// silently degrades to a boolean.
package logic

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind discriminates the Value union.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the condition language's data types. The zero
// Value is null. Maps preserve key order for deterministic serialization.
type Value struct {
	kind    Kind
	b       bool
	num     float64
	str     string
	list    []Value
	keys    []string
	entries map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List wraps an ordered list of values.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: vs}
}

// MapEntry is one key/value pair of an ordered map.
type MapEntry struct {
	Key   string
	Value Value
}

// Map builds a key-ordered map value. Later duplicates overwrite earlier ones
// without disturbing the original key position.
func Map(pairs ...MapEntry) Value {
	v := Value{
		kind:    KindMap,
		entries: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		if _, exists := v.entries[p.Key]; !exists {
			v.keys = append(v.keys, p.Key)
		}
		v.entries[p.Key] = p.Value
	}
	return v
}

// FromAny normalizes a decoded JSON structure into a Value. Map keys are
// sorted so two structurally equal inputs produce identical Values regardless
// of Go map iteration order.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case string:
		return String(v), nil
	case []any:
		list := make([]Value, 0, len(v))
		for _, item := range v {
			converted, err := FromAny(item)
			if err != nil {
				return Null(), err
			}
			list = append(list, converted)
		}
		return List(list...), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]MapEntry, 0, len(keys))
		for _, k := range keys {
			converted, err := FromAny(v[k])
			if err != nil {
				return Null(), err
			}
			pairs = append(pairs, MapEntry{Key: k, Value: converted})
		}
		return Map(pairs...), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", raw)
	}
}

// Interface converts the Value back to a generic structure for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.Interface())
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.entries[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// Kind returns the value's discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload when the value is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the numeric payload when the value is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsString returns the string payload when the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsList returns the element slice when the value is a list. Callers must not
// mutate the returned slice.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Keys returns map keys in insertion order. Empty for non-maps.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	return v.keys
}

// Get looks up a map entry by key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	entry, ok := v.entries[key]
	return entry, ok
}

// Len returns the element count for lists and maps, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.keys)
	default:
		return 0
	}
}

// Equal reports deep structural equality. Two numbers are equal by float
// comparison; NaN never equals anything, matching the evaluator's refusal to
// treat NaN as a meaningful result.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(other.keys) {
			return false
		}
		for _, k := range v.keys {
			o, ok := other.entries[k]
			if !ok || !v.entries[k].Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a compact literal form for diagnostics and logs.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if math.Trunc(v.num) == v.num && !math.IsInf(v.num, 0) {
			return strconv.FormatFloat(v.num, 'f', -1, 64)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindList:
		s := "["
		for i, item := range v.list {
			if i > 0 {
				s += ","
			}
			s += item.String()
		}
		return s + "]"
	case KindMap:
		s := "{"
		for i, k := range v.keys {
			if i > 0 {
				s += ","
			}
			s += strconv.Quote(k) + ":" + v.entries[k].String()
		}
		return s + "}"
	default:
		return "unknown"
	}
}
