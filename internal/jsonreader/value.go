package jsonreader

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind is the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is a decoded JSON value. Only the field matching Kind is set.
// Dictionaries keep the order of their keys.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Items []Value
	Pairs []Pair
}

// Pair is one entry of a dictionary.
type Pair struct {
	Key   string
	Value Value
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Integer(i int64) Value      { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Array(items ...Value) Value { return Value{Kind: KindArray, Items: items} }
func Dict(pairs ...Pair) Value   { return Value{Kind: KindDict, Pairs: pairs} }

// Get returns the value stored under key in a dictionary. When a key
// repeats, the last entry wins.
func (v Value) Get(key string) (Value, bool) {
	for i := len(v.Pairs) - 1; i >= 0; i-- {
		if v.Pairs[i].Key == key {
			return v.Pairs[i].Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of items or pairs.
func (v Value) Len() int {
	switch v.Kind {
	case KindArray:
		return len(v.Items)
	case KindDict:
		return len(v.Pairs)
	}
	return 0
}

// Interface converts the value into plain Go values: nil, bool, int64,
// float64, string, []any and map[string]any.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case KindDict:
		out := make(map[string]any, len(v.Pairs))
		for _, p := range v.Pairs {
			out[p.Key] = p.Value.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON encodes the value as standard JSON, keeping key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindInteger:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b, err := json.Marshal(v.Float)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindDict:
		buf.WriteByte('{')
		for i, p := range v.Pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := p.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// String returns the compact JSON encoding.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}
