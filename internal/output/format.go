package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat specifies how run summaries are written.
type OutputFormat string

const (
	// FormatText renders a table.
	FormatText OutputFormat = "text"

	// FormatYAML outputs in YAML format.
	FormatYAML OutputFormat = "yaml"

	// FormatJSON outputs in JSON format.
	FormatJSON OutputFormat = "json"
)

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatText, FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// ParseOutputFormat parses a string into an OutputFormat.
// Returns FormatText if the string is empty or invalid.
func ParseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// ValidFormats returns a slice of valid output format strings.
func ValidFormats() []string {
	return []string{"text", "yaml", "json"}
}

// WriteStructured encodes v to w as YAML or JSON.
func WriteStructured(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}
