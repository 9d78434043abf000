package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pytrace/internal/diag"
	"pytrace/internal/source"
)

type palette struct {
	err, warn, info, path, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes every diagnostic of bag as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a caret underline. Call bag.Sort first
// for source order.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		file := fs.Get(d.Primary.File)
		start, end := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprintf("%s:%d:%d", file.Path, start.Line, start.Col),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message,
		)
		writeSnippet(w, p, file, start, end, opts.Context)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				ns, _ := fs.Resolve(n.Span)
				fmt.Fprintf(w, "  %s %s (line %d)\n", p.info.Sprint("note:"), n.Msg, ns.Line)
			}
		}
	}
}

func writeSnippet(w io.Writer, p palette, file *source.File, start, end source.LineCol, context int) {
	if start.Line == 0 {
		return
	}
	first := start.Line
	if context > 0 && int(first) > context {
		first -= uint32(context)
	} else if context > 0 {
		first = 1
	}
	width := len(fmt.Sprint(start.Line))
	for ln := first; ln <= start.Line; ln++ {
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", width, ln), file.GetLine(ln))
	}
	text := file.GetLine(start.Line)
	lead := columnWidth(text, start.Col)
	span := 1
	if end.Line == start.Line && end.Col > start.Col {
		span = max(columnWidth(text, end.Col)-lead, 1)
	}
	fmt.Fprintf(w, "%s %s%s\n",
		p.gutter.Sprintf("%*s |", width, ""),
		strings.Repeat(" ", lead),
		p.caret.Sprint("^"+strings.Repeat("~", span-1)),
	)
}

// columnWidth is the display width of text before the 1-based byte column.
func columnWidth(text string, col uint32) int {
	if col <= 1 {
		return 0
	}
	n := min(int(col-1), len(text))
	return runewidth.StringWidth(text[:n])
}
