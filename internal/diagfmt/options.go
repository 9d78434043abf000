// Package diagfmt renders diagnostics and token streams for the debug
// commands.
package diagfmt

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown above the primary line.
	Context   int
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	Max              int // truncates the output, not the bag
	IncludeNotes     bool
}
