// Package value holds the canonical tagged value carried by custom events,
// custom metadata and collector frames.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Kind tags the representation held by a Value.
type Kind int

const (
	String Kind = iota
	Bool
	Int
	Float
	Array
	Dict
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Array:
		return "array"
	case Dict:
		return "dict"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a tagged union. Only the field matching Kind is meaningful.
type Value struct {
	kind Kind
	s    string
	b    bool
	i    int64
	f    float64
	arr  []Value
	dict map[string]Value
}

func OfString(s string) Value { return Value{kind: String, s: s} }
func OfBool(b bool) Value     { return Value{kind: Bool, b: b} }
func OfInt(i int64) Value     { return Value{kind: Int, i: i} }
func OfFloat(f float64) Value { return Value{kind: Float, f: f} }

func OfArray(items ...Value) Value {
	return Value{kind: Array, arr: append([]Value{}, items...)}
}

func OfDict(entries map[string]Value) Value {
	d := make(map[string]Value, len(entries))
	for k, v := range entries {
		d[k] = v
	}
	return Value{kind: Dict, dict: d}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool)    { return v.s, v.kind == String }
func (v Value) Bool() (bool, bool)     { return v.b, v.kind == Bool }
func (v Value) Int() (int64, bool)     { return v.i, v.kind == Int }
func (v Value) Float() (float64, bool) { return v.f, v.kind == Float }

func (v Value) Array() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return append([]Value{}, v.arr...), true
}

func (v Value) Dict() (map[string]Value, bool) {
	if v.kind != Dict {
		return nil, false
	}
	d := make(map[string]Value, len(v.dict))
	for k, e := range v.dict {
		d[k] = e
	}
	return d, true
}

// From converts an arbitrary host value. Representations are tried in a
// fixed order and the first match wins: string, bool, integer, float,
// sequence, mapping, and finally the value's printed form as a string.
func From(raw any) Value {
	if s, ok := asString(raw); ok {
		return OfString(s)
	}
	if b, ok := raw.(bool); ok {
		return OfBool(b)
	}
	if i, ok := AsInt(raw); ok {
		return OfInt(i)
	}
	if f, ok := AsFloat(raw); ok {
		return OfFloat(f)
	}
	if items, ok := asSequence(raw); ok {
		arr := make([]Value, len(items))
		for i, item := range items {
			arr[i] = From(item)
		}
		return Value{kind: Array, arr: arr}
	}
	if entries, ok := asMapping(raw); ok {
		dict := make(map[string]Value, len(entries))
		for k, item := range entries {
			dict[k] = From(item)
		}
		return Value{kind: Dict, dict: dict}
	}

	return OfString(fmt.Sprint(raw))
}

// Native converts back into plain Go values: string, bool, int64, float64,
// []any and map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case Array:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Native()
		}
		return out
	case Dict:
		out := make(map[string]any, len(v.dict))
		for k, item := range v.dict {
			out[k] = item.Native()
		}
		return out
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = From(raw)
	return nil
}

// Equal compares kind and content recursively.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.b == o.b
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Dict:
		if len(v.dict) != len(o.dict) {
			return false
		}
		for k, e := range v.dict {
			oe, ok := o.dict[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return v.s == o.s
	}
}

func (v Value) String() string {
	switch v.kind {
	case String:
		return strconv.Quote(v.s)
	case Dict:
		keys := make([]string, 0, len(v.dict))
		for k := range v.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += strconv.Quote(k) + ": " + v.dict[k].String()
		}
		return out + "}"
	case Array:
		out := "["
		for i, item := range v.arr {
			if i > 0 {
				out += ", "
			}
			out += item.String()
		}
		return out + "]"
	default:
		return fmt.Sprint(v.Native())
	}
}

func asString(raw any) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

// AsInt reports whether raw can be read as a signed 64-bit integer. Floats
// qualify only when they hold an integral value inside the int64 range.
func AsInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsFloat reports whether raw is numeric at all.
func AsFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := AsInt(raw); ok {
		return float64(i), true
	}
	return 0, false
}

func uintToInt(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asSequence(raw any) ([]any, bool) {
	if items, ok := raw.([]any); ok {
		return items, true
	}
	if raw == nil {
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func asMapping(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	if raw == nil {
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}
