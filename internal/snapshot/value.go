// Package snapshot models one structured-data document received from a
// debug endpoint as a closed variant of scalars, ordered sequences and
// ordered mappings.
package snapshot

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one key/value entry of a mapping.
type Field struct {
	Key   string
	Value Value
}

// Value is an immutable node of a snapshot. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // number literal or string content
	items   []Value
	fields  []Field
	index   map[string]int
}

// NullValue returns the null scalar.
func NullValue() Value { return Value{} }

// BoolValue returns a boolean scalar.
func BoolValue(b bool) Value { return Value{kind: Bool, boolean: b} }

// StringValue returns a string scalar.
func StringValue(s string) Value { return Value{kind: String, text: s} }

// IntValue returns an integral number scalar.
func IntValue(n int64) Value {
	return Value{kind: Number, text: strconv.FormatInt(n, 10)}
}

// FloatValue returns a number scalar from a float.
func FloatValue(f float64) Value {
	return Value{kind: Number, text: formatFloat(f)}
}

// NumberValue returns a number scalar from a JSON number literal. The literal
// is canonicalized; integer literals are kept digit for digit.
func NumberValue(literal string) (Value, error) {
	canon, err := canonicalNumber(literal)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: Number, text: canon}, nil
}

// SequenceValue returns an ordered sequence of values.
func SequenceValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Sequence, items: items}
}

// MappingValue returns an ordered mapping. A repeated key replaces the
// earlier value but keeps the earlier position.
func MappingValue(fields ...Field) Value {
	v := Value{kind: Mapping, fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := v.index[f.Key]; ok {
			v.fields[i].Value = f.Value
			continue
		}
		v.index[f.Key] = len(v.fields)
		v.fields = append(v.fields, f)
	}
	return v
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is null, a bool, a number or a string.
func (v Value) IsScalar() bool { return v.kind != Sequence && v.kind != Mapping }

// Bool returns the boolean content; false for other kinds.
func (v Value) Bool() bool { return v.boolean }

// Text returns the string content or the number literal.
func (v Value) Text() string { return v.text }

// Len returns the number of elements or fields; 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Sequence:
		return len(v.items)
	case Mapping:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th element of a sequence.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Sequence || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Items returns the elements of a sequence. The slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != Sequence {
		return nil
	}
	return v.items
}

// Fields returns the entries of a mapping in order. The slice must not be modified.
func (v Value) Fields() []Field {
	if v.kind != Mapping {
		return nil
	}
	return v.fields
}

// Keys returns mapping keys in order.
func (v Value) Keys() []string {
	if v.kind != Mapping {
		return nil
	}
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value stored under key in a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.fields[i].Value, true
}

// Without returns a copy of a mapping with key removed. Other kinds, and
// mappings without key, are returned unchanged.
func (v Value) Without(key string) Value {
	if _, ok := v.Get(key); !ok {
		return v
	}
	kept := make([]Field, 0, len(v.fields)-1)
	for _, f := range v.fields {
		if f.Key != key {
			kept = append(kept, f)
		}
	}
	return MappingValue(kept...)
}

// Equal reports deep equality, including mapping key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.boolean == o.boolean
	case Number, String:
		return v.text == o.text
	case Sequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Mapping:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
