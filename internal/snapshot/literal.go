package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var integerLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

// Literal returns the canonical text of a scalar: null, true/false, the
// number literal, or a double-quoted JSON string. Composite values return
// their JSON encoding on a single line.
func (v Value) Literal() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		if v.boolean {
			return "true"
		}
		return "false"
	case Number:
		return v.text
	case String:
		return quoteString(v.text)
	default:
		var buf bytes.Buffer
		writeJSON(&buf, v)
		return buf.String()
	}
}

// quoteString renders s as a JSON string without HTML escaping.
func quoteString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func canonicalNumber(literal string) (string, error) {
	lit := strings.TrimSpace(literal)
	if integerLiteral.MatchString(lit) {
		if lit == "-0" {
			return "0", nil
		}
		return lit, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number literal %q: %w", literal, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("invalid number literal %q: not finite", literal)
	}
	return formatFloat(f), nil
}

// formatFloat mirrors the shortest round-trip rendering used by JSON
// encoders: plain decimals for ordinary magnitudes, exponent form otherwise.
func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
