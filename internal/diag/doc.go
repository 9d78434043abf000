// Package diag defines the diagnostic model shared by the lexer and parser.
//
// A Diagnostic carries a Severity, a stable Code, a short Message and the
// primary source.Span it points at. Producers emit through the Reporter
// interface; BagReporter collects into a bounded Bag and DedupReporter drops
// repeats. Rendering lives in internal/diagfmt.
//
// The interpreter turns the first error in a Bag into a SyntaxError, so
// producers should report the earliest problem first and keep messages in
// the same register Python uses ("invalid syntax", "expected ':'").
package diag
