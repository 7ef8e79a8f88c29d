// Package export serializes the last snapshot, or a part of it, as pretty
// text for the clipboard or standard output.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvwatch/internal/cel"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

// Format selects the text encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a format name; the empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w %q: valid values are json, yaml", ErrUnknownFormat, s)
}

// Exporter renders snapshots in one format.
type Exporter struct {
	format Format
	eval   *cel.Evaluator
}

// New returns an exporter for format. Expression exports need a CEL
// evaluator; pass nil to create one on first use.
func New(format Format, eval *cel.Evaluator) *Exporter {
	if format == "" {
		format = FormatJSON
	}
	return &Exporter{format: format, eval: eval}
}

// Format returns the exporter's encoding.
func (e *Exporter) Format() Format { return e.format }

// All renders the whole cached snapshot.
func (e *Exporter) All(cache snapshot.Value) (string, error) {
	return Encode(cache, e.format)
}

// Path renders the subtree at a dotted path key. The key is resolved
// against the raw cache, so keys hidden from the tree are still reachable.
func (e *Exporter) Path(cache snapshot.Value, path string) (string, error) {
	v, err := snapshot.Lookup(cache, path)
	if err != nil {
		return "", err
	}
	return Encode(v, e.format)
}

// Expression renders the result of a CEL expression over the cache.
func (e *Exporter) Expression(cache snapshot.Value, expr string) (string, error) {
	if e.eval == nil {
		eval, err := cel.NewEvaluator()
		if err != nil {
			return "", err
		}
		e.eval = eval
	}
	v, err := e.eval.Evaluate(expr, cache)
	if err != nil {
		return "", fmt.Errorf("expression %q: %w", expr, err)
	}
	return Encode(v, e.format)
}

// Encode renders v. JSON uses a two-space indent and keeps mapping order;
// YAML does the same through an ordered node tree. No trailing newline.
func Encode(v snapshot.Value, format Format) (string, error) {
	switch format {
	case FormatJSON, "":
		return snapshot.IndentJSON(v)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snapshot.YAMLNode(v)); err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
}
