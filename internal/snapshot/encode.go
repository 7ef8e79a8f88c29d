package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes v as compact JSON, keeping mapping key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.Bytes(), nil
}

// IndentJSON encodes v as JSON indented with two spaces.
func IndentJSON(v Value) (string, error) {
	var compact, out bytes.Buffer
	writeJSON(&compact, v)
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("indent json: %w", err)
	}
	return out.String(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case Sequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, item)
		}
		buf.WriteByte(']')
	case Mapping:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quoteString(f.Key))
			buf.WriteByte(':')
			writeJSON(buf, f.Value)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString(v.Literal())
	}
}

// YAMLNode converts v into a yaml.v3 node tree that keeps mapping order.
func YAMLNode(v Value) *yaml.Node {
	switch v.kind {
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Literal()}
	case Number:
		tag := "!!float"
		if integerLiteral.MatchString(v.text) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.text}
	case String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.text}
	case Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			n.Content = append(n.Content, YAMLNode(item))
		}
		return n
	default:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range v.fields {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
				YAMLNode(f.Value))
		}
		return n
	}
}

// Interface converts v into plain Go values (map[string]interface{},
// []interface{}, int64, float64, string, bool, nil) for expression engines.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.boolean
	case Number:
		if n, err := strconv.ParseInt(v.text, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(v.text, 64)
		return f
	case String:
		return v.text
	case Sequence:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	default:
		out := make(map[string]interface{}, len(v.fields))
		for _, f := range v.fields {
			out[f.Key] = f.Value.Interface()
		}
		return out
	}
}

// FromInterface converts plain Go data into a Value. Map keys are sorted
// because Go maps carry no order.
func FromInterface(data interface{}) (Value, error) {
	switch x := data.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case json.Number:
		return NumberValue(x.String())
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint:
		return Value{kind: Number, text: strconv.FormatUint(uint64(x), 10)}, nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case uint64:
		return Value{kind: Number, text: strconv.FormatUint(x, 10)}, nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case time.Time:
		return StringValue(x.Format(time.RFC3339Nano)), nil
	case []interface{}:
		items := make([]Value, len(x))
		for i, elem := range x {
			item, err := FromInterface(elem)
			if err != nil {
				return Value{}, fmt.Errorf("element [%d]: %w", i, err)
			}
			items[i] = item
		}
		return SequenceValue(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			val, err := FromInterface(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, Field{Key: k, Value: val})
		}
		return MappingValue(fields...), nil
	case fmt.Stringer:
		return StringValue(x.String()), nil
	}

	// Typed slices and maps that did not match the generic cases above.
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		generic := make([]interface{}, rv.Len())
		for i := range generic {
			generic[i] = rv.Index(i).Interface()
		}
		return FromInterface(generic)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		generic := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[iter.Key().String()] = iter.Value().Interface()
		}
		return FromInterface(generic)
	default:
		return Value{}, fmt.Errorf("unsupported type %T", data)
	}
}
