// Package token defines lexical token kinds for pytrace Python.
// Invariants:
//   - Token.Text is a slice of the original source (no copies), except for
//     synthesized NEWLINE/INDENT/DEDENT tokens whose Text is empty.
//   - Token.Span matches Text exactly for real tokens.
//   - StringLit/FStringLit keep their prefix and quotes in Text; the parser decodes them.
//   - Builtin names (print, len, int, ...) are identifiers, resolved at run time.
package token
