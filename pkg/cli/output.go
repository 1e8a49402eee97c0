package cli

import (
	"encoding/json"
	"io"
)

// OutputFormat selects how a command renders its results.
type OutputFormat string

const (
	// FormatText is the human-readable listing (default).
	FormatText OutputFormat = "text"
	// FormatJSON is machine-readable JSON.
	FormatJSON OutputFormat = "json"
)

// JSONFormatter encodes command output as JSON. Text output is rendered by
// each command directly, since the listings are command-specific.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
