package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"pytrace/internal/source"
	"pytrace/internal/token"
)

type TokenOutput struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Line  uint32 `json:"line"`
	Col   uint32 `json:"col"`
}

// FormatTokensPretty prints one token per line up to and including EOF.
func FormatTokensPretty(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	for i, tok := range tokens {
		startPos, endPos := fs.Resolve(tok.Span)
		if _, err := fmt.Fprintf(w, "%3d: %-15s", i+1, tok.Kind.String()); err != nil {
			return err
		}
		if tok.Text != "" {
			fmt.Fprintf(w, " %q", tok.Text)
		}
		fmt.Fprintf(w, " at %d:%d-%d:%d\n", startPos.Line, startPos.Col, endPos.Line, endPos.Col)
		if tok.Kind == token.EOF {
			break
		}
	}
	return nil
}

// FormatTokensJSON writes the token stream as an indented JSON array.
func FormatTokensJSON(w io.Writer, tokens []token.Token, fs *source.FileSet) error {
	output := make([]TokenOutput, 0, len(tokens))
	for _, tok := range tokens {
		start, _ := fs.Resolve(tok.Span)
		output = append(output, TokenOutput{
			Kind:  tok.Kind.String(),
			Text:  tok.Text,
			Start: tok.Span.Start,
			End:   tok.Span.End,
			Line:  start.Line,
			Col:   start.Col,
		})
		if tok.Kind == token.EOF {
			break
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
