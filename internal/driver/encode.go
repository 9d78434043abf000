package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"pytrace/internal/record"
)

// Format is the encoding of the output document.
type Format string

const (
	FormatJSON       Format = "json"
	FormatJSONIndent Format = "json-indent"
	FormatMsgpack    Format = "msgpack"
)

// ParseFormat validates a format name; empty means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatJSONIndent, FormatMsgpack:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json|json-indent|msgpack)", s)
}

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	Format Format
	// Indent is the number of spaces per level for FormatJSONIndent; 2 when
	// zero.
	Indent int
}

// Encode writes tr as the single output document: an array of steps.
func Encode(w io.Writer, tr *record.Trace, format Format) error {
	return EncodeWith(w, tr, EncodeOptions{Format: format})
}

// EncodeWith is Encode with explicit options.
func EncodeWith(w io.Writer, tr *record.Trace, opts EncodeOptions) error {
	steps := tr.Steps
	if steps == nil {
		steps = []record.Step{}
	}
	switch opts.Format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(steps)
	case FormatJSONIndent:
		indent := opts.Indent
		if indent <= 0 {
			indent = 2
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", strings.Repeat(" ", indent))
		return enc.Encode(steps)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(steps)
	}
	return fmt.Errorf("unknown output format %q", opts.Format)
}
