// Package fuzztests holds Go fuzz harnesses for the tracing pipeline
// (source, lexer, parser and the sandboxed driver). They guard against
// panics and hangs on arbitrary scripts.
package fuzztests
