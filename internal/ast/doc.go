// Package ast defines the syntax tree produced by internal/parser.
//
// Nodes are plain pointer structs. Every node records its source span and
// the 1-based line it starts on; the interpreter reports line events from
// statement lines, so compound statements carry extra lines where a
// separate event exists (elif tests, except clauses).
package ast
