// Package loader decodes snapshot documents (JSON, YAML or TOML) into the
// ordered snapshot value model.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

// Format names a document encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrEmptyInput is returned for blank documents.
var ErrEmptyInput = errors.New("empty input")

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatTOML:
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown format %q: valid values are auto, json, yaml, toml", s)
}

// FormatForFile guesses a format from a file extension, falling back to auto.
func FormatForFile(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatAuto
}

// Load decodes data in the given format. FormatAuto sniffs the content:
// a leading '{' or '[' is JSON, TOML headers or key = value lines are TOML,
// anything else is YAML.
func Load(data []byte, format Format) (snapshot.Value, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return snapshot.Value{}, ErrEmptyInput
	}
	if format == FormatAuto || format == "" {
		format = detect(trimmed)
	}
	switch format {
	case FormatJSON:
		return decodeJSON([]byte(trimmed))
	case FormatTOML:
		return decodeTOML([]byte(trimmed))
	case FormatYAML:
		return decodeYAML([]byte(trimmed))
	}
	return snapshot.Value{}, fmt.Errorf("unsupported format %q", format)
}

// LoadFile reads and decodes a file, picking the format from its extension.
func LoadFile(path string) (snapshot.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Value{}, err
	}
	v, err := Load(data, FormatForFile(path))
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func detect(input string) Format {
	if strings.HasPrefix(input, "{") || (strings.HasPrefix(input, "[") && !isLikelyTOML(input)) {
		return FormatJSON
	}
	if isLikelyTOML(input) {
		return FormatTOML
	}
	return FormatYAML
}

// ErrMalformedJSON is returned for bodies that are not exactly one JSON
// document, such as trailing data or trailing commas.
var ErrMalformedJSON = errors.New("malformed JSON document")

func decodeJSON(data []byte) (snapshot.Value, error) {
	// jsonparser walks lazily and stops at the first complete value, so the
	// whole body is validated up front.
	if !json.Valid(data) {
		return snapshot.Value{}, fmt.Errorf("invalid JSON: %w", ErrMalformedJSON)
	}
	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	v, err := jsonValue(raw, dataType)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

func jsonValue(raw []byte, dataType jsonparser.ValueType) (snapshot.Value, error) {
	switch dataType {
	case jsonparser.Null:
		return snapshot.NullValue(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return snapshot.Value{}, err
		}
		return snapshot.BoolValue(b), nil
	case jsonparser.Number:
		return snapshot.NumberValue(string(raw))
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return snapshot.Value{}, err
		}
		return snapshot.StringValue(s), nil
	case jsonparser.Array:
		items := []snapshot.Value{}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			item, err := jsonValue(value, dt)
			if err != nil {
				inner = fmt.Errorf("element [%d]: %w", len(items), err)
				return
			}
			items = append(items, item)
		})
		if inner != nil {
			return snapshot.Value{}, inner
		}
		if err != nil {
			return snapshot.Value{}, err
		}
		return snapshot.SequenceValue(items...), nil
	case jsonparser.Object:
		var fields []snapshot.Field
		err := jsonparser.ObjectEach(raw, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			v, err := jsonValue(value, dt)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, snapshot.Field{Key: k, Value: v})
			return nil
		})
		if err != nil {
			return snapshot.Value{}, err
		}
		return snapshot.MappingValue(fields...), nil
	}
	return snapshot.Value{}, fmt.Errorf("unexpected token %q", truncate(string(raw), 20))
}

func decodeYAML(data []byte) (snapshot.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return snapshot.Value{}, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return snapshot.Value{}, ErrEmptyInput
	}
	return yamlValue(doc.Content[0])
}

func yamlValue(n *yaml.Node) (snapshot.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return snapshot.NullValue(), nil
		}
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		items := make([]snapshot.Value, 0, len(n.Content))
		for i, c := range n.Content {
			item, err := yamlValue(c)
			if err != nil {
				return snapshot.Value{}, fmt.Errorf("element [%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return snapshot.SequenceValue(items...), nil
	case yaml.MappingNode:
		fields := make([]snapshot.Field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return snapshot.Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			fields = append(fields, snapshot.Field{Key: key, Value: v})
		}
		return snapshot.MappingValue(fields...), nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return snapshot.NullValue(), nil
}

func yamlScalar(n *yaml.Node) (snapshot.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return snapshot.NullValue(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return snapshot.Value{}, err
		}
		return snapshot.BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return snapshot.IntValue(i), nil
		}
		if v, err := snapshot.NumberValue(n.Value); err == nil {
			return v, nil
		}
		return snapshot.StringValue(n.Value), nil
	case "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			if v, err := snapshot.NumberValue(strconv.FormatFloat(f, 'g', -1, 64)); err == nil {
				return v, nil
			}
		}
		// .inf and .nan have no JSON rendering.
		return snapshot.StringValue(n.Value), nil
	default:
		return snapshot.StringValue(n.Value), nil
	}
}

func decodeTOML(data []byte) (snapshot.Value, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return snapshot.Value{}, fmt.Errorf("invalid TOML: %w", err)
	}
	return snapshot.FromInterface(doc)
}

var (
	tomlSectionPattern  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValuePattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// isLikelyTOML returns true when the input has TOML section headers or
// mostly key = value lines.
func isLikelyTOML(input string) bool {
	sectionCount, keyValueCount, nonEmptyCount := 0, 0, 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmptyCount++
		if tomlSectionPattern.MatchString(line) {
			sectionCount++
		}
		if tomlKeyValuePattern.MatchString(line) {
			keyValueCount++
		}
	}
	if sectionCount > 0 {
		return true
	}
	return nonEmptyCount > 0 && keyValueCount > nonEmptyCount/2
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
