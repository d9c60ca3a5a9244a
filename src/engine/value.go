package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the storable value model: a tagged union over the JSON-like
// types. Values are compared with a total order so they can serve as
// index keys, including floats (NaN sorts above every other number).
type Value struct {
	kind    ValueKind
	boolVal bool
	numVal  float64
	strVal  string
	arrVal  []Value
	objVal  *Object
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, boolVal: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, numVal: n} }
func String(s string) Value      { return Value{kind: KindString, strVal: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, arrVal: items} }
func ObjectValue(obj *Object) Value {
	if obj == nil {
		obj = NewObject()
	}
	return Value{kind: KindObject, objVal: obj}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	return v.boolVal, v.kind == KindBool
}

func (v Value) AsNumber() (float64, bool) {
	return v.numVal, v.kind == KindNumber
}

func (v Value) AsString() (string, bool) {
	return v.strVal, v.kind == KindString
}

func (v Value) AsArray() ([]Value, bool) {
	return v.arrVal, v.kind == KindArray
}

func (v Value) AsObject() (*Object, bool) {
	return v.objVal, v.kind == KindObject
}

// Object is an insertion-ordered string-keyed map of Values. Order matters
// for deterministic validation output, so a plain Go map is not enough.
type Object struct {
	keys   []string
	fields map[string]Value
}

func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Set adds or replaces a field. A replaced field keeps its original
// position in the key order.
func (o *Object) Set(key string, v Value) *Object {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
	return o
}

func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

func (o *Object) Delete(key string) {
	if _, exists := o.fields[key]; !exists {
		return
	}
	delete(o.fields, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *Object) Len() int {
	return len(o.fields)
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Clone() *Object {
	clone := NewObject()
	for _, k := range o.keys {
		clone.Set(k, o.fields[k].Clone())
	}
	return clone
}

// Clone deep-copies the value. Scalars are copied by value; arrays and
// objects get fresh backing storage so the copy cannot drift with the
// original.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.arrVal))
		for i, item := range v.arrVal {
			items[i] = item.Clone()
		}
		return Value{kind: KindArray, arrVal: items}
	case KindObject:
		return Value{kind: KindObject, objVal: v.objVal.Clone()}
	default:
		return v
	}
}

// Equal reports structural equality, consistent with CompareValues.
func (v Value) Equal(other Value) bool {
	return CompareValues(v, other) == 0
}

// typeRank gives the cross-type ordering Null < Bool < Number < String <
// Array < Object.
func typeRank(k ValueKind) int {
	return int(k)
}

// CompareValues is a total order over all values. Numbers compare
// numerically with NaN as a single class above every other number (and
// equal to itself), booleans false < true, strings by code point, arrays
// lexicographically, objects by ordered (key, value) pairs. The result is
// a strict weak ordering consistent with Equal.
func CompareValues(a, b Value) int {
	if ra, rb := typeRank(a.kind), typeRank(b.kind); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		if a.boolVal == b.boolVal {
			return 0
		}
		if !a.boolVal {
			return -1
		}
		return 1
	case KindNumber:
		return compareFloats(a.numVal, b.numVal)
	case KindString:
		return strings.Compare(a.strVal, b.strVal)
	case KindArray:
		n := len(a.arrVal)
		if len(b.arrVal) < n {
			n = len(b.arrVal)
		}
		for i := 0; i < n; i++ {
			if c := CompareValues(a.arrVal[i], b.arrVal[i]); c != 0 {
				return c
			}
		}
		return len(a.arrVal) - len(b.arrVal)
	case KindObject:
		ak, bk := a.objVal.keys, b.objVal.keys
		n := len(ak)
		if len(bk) < n {
			n = len(bk)
		}
		for i := 0; i < n; i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			av, _ := a.objVal.Get(ak[i])
			bv, _ := b.objVal.Get(bk[i])
			if c := CompareValues(av, bv); c != 0 {
				return c
			}
		}
		return len(ak) - len(bk)
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CanonicalString renders the value into a stable text form used as a
// hashable index key and for structural uniqueness checks. Two values are
// equal exactly when their canonical strings match.
func (v Value) CanonicalString() string {
	var b strings.Builder
	v.writeCanonical(&b)
	return b.String()
}

func (v Value) writeCanonical(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("z:null")
	case KindBool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(v.boolVal))
	case KindNumber:
		b.WriteString("n:")
		switch {
		case math.IsNaN(v.numVal):
			b.WriteString("NaN")
		case v.numVal == 0:
			// Negative zero compares equal to zero, so it must share
			// the key.
			b.WriteString("0")
		default:
			b.WriteString(strconv.FormatFloat(v.numVal, 'g', -1, 64))
		}
	case KindString:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(v.strVal))
	case KindArray:
		b.WriteString("a:[")
		for i, item := range v.arrVal {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeCanonical(b)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteString("o:{")
		for i, k := range v.objVal.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte('=')
			fv := v.objVal.fields[k]
			fv.writeCanonical(b)
		}
		b.WriteByte('}')
	}
}

// String renders the value in a JSON-ish form for logs and errors.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.strVal)
	case KindArray:
		parts := make([]string, len(v.arrVal))
		for i, item := range v.arrVal {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindObject:
		parts := make([]string, 0, v.objVal.Len())
		for _, k := range v.objVal.keys {
			fv := v.objVal.fields[k]
			parts = append(parts, strconv.Quote(k)+":"+fv.String())
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "<invalid>"
	}
}

// FromNative converts decoded JSON/BSON data (maps, slices, Go scalars)
// into a Value. Map keys are sorted so the conversion is deterministic
// regardless of Go map iteration order.
func FromNative(data interface{}) (Value, error) {
	switch t := data.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, raw := range t {
			item, err := FromNative(raw)
			if err != nil {
				return Null(), err
			}
			items[i] = item
		}
		return Array(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			fv, err := FromNative(t[k])
			if err != nil {
				return Null(), err
			}
			obj.Set(k, fv)
		}
		return ObjectValue(obj), nil
	default:
		return Null(), fmt.Errorf("unsupported native type %T", data)
	}
}

// ToNative converts the value back to plain Go data for JSON/BSON
// encoding.
func (v Value) ToNative() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numVal
	case KindString:
		return v.strVal
	case KindArray:
		out := make([]interface{}, len(v.arrVal))
		for i, item := range v.arrVal {
			out[i] = item.ToNative()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, v.objVal.Len())
		for _, k := range v.objVal.keys {
			fv := v.objVal.fields[k]
			out[k] = fv.ToNative()
		}
		return out
	default:
		return nil
	}
}
