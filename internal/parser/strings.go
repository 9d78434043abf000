package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/lexer"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

// parseStrings concatenates adjacent string literals. The result is a
// StrLit unless an f-string takes part.
func (p *Parser) parseStrings() ast.Expr {
	start := p.posTok(p.peek())
	var parts []ast.FStringPart
	isF := false
	for p.atAny(token.StringLit, token.FStringLit) {
		tok := p.advance()
		prefix, body, bodyStart := splitLiteral(tok)
		raw := strings.ContainsAny(prefix, "rR")
		if tok.Kind == token.StringLit {
			parts = appendLit(parts, p.decode(body, raw, tok.Span))
			continue
		}
		isF = true
		parts = append(parts, p.parseFStringBody(tok.Span.File, body, bodyStart, raw)...)
	}
	pos := p.cover(start)
	if !isF {
		text := ""
		if len(parts) > 0 {
			text = parts[0].Lit
		}
		return &ast.StrLit{Pos: pos, Value: text}
	}
	return &ast.FString{Pos: pos, Parts: parts}
}

func appendLit(parts []ast.FStringPart, s string) []ast.FStringPart {
	if s == "" {
		return parts
	}
	if n := len(parts); n > 0 && parts[n-1].Expr == nil {
		parts[n-1].Lit += s
		return parts
	}
	return append(parts, ast.FStringPart{Lit: s})
}

// splitLiteral returns the prefix, the body and the body's source offset.
func splitLiteral(tok token.Token) (prefix, body string, bodyStart uint32) {
	text := tok.Text
	i := strings.IndexAny(text, `'"`)
	prefix = text[:i]
	q := text[i : i+1]
	if strings.HasPrefix(text[i:], q+q+q) && len(text)-i >= 6 {
		q = q + q + q
	}
	body = text[i+len(q) : len(text)-len(q)]
	off, err := safecast.Conv[uint32](i + len(q))
	if err != nil {
		off = 0
	}
	return prefix, body, tok.Span.Start + off
}

// decode processes escape sequences of a non-raw literal.
func (p *Parser) decode(body string, raw bool, sp source.Span) string {
	if raw || !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case '\n':
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(body[i:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case 'x', 'u', 'U':
			n := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if i+1+n > len(body) {
				p.failAt(diag.LexBadEscape, sp, `truncated \`+string(e)+` escape`)
			}
			v, err := strconv.ParseUint(body[i+1:i+1+n], 16, 32)
			if err != nil || v > utf8.MaxRune {
				p.failAt(diag.LexBadEscape, sp, `truncated \`+string(e)+` escape`)
			}
			b.WriteRune(rune(v))
			i += n
		case 'N':
			p.failAt(diag.LexBadEscape, sp, `\N{...} escapes are not supported`)
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// parseFStringBody splits an f-string body into literal text and
// replacement fields. Field expressions are lexed from the original file so
// their spans and lines are exact.
func (p *Parser) parseFStringBody(fileID source.FileID, body string, bodyStart uint32, raw bool) []ast.FStringPart {
	var parts []ast.FStringPart
	lit := strings.Builder{}
	at := func(i int) uint32 {
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			p.fail(diag.SynBadFString, "f-string literal too large")
		}
		return bodyStart + off
	}
	flush := func() {
		if lit.Len() > 0 {
			parts = appendLit(parts, p.decode(lit.String(), raw, source.Span{File: fileID, Start: bodyStart, End: at(len(body))}))
			lit.Reset()
		}
	}

	for i := 0; i < len(body); {
		switch c := body[i]; {
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '}':
			p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(i), End: at(i + 1)}, "f-string: single '}' is not allowed")
		case c == '{':
			flush()
			part, next := p.parseFStringField(fileID, body, i+1, at, raw)
			parts = append(parts, part)
			i = next
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return parts
}

// parseFStringField parses `expr [=] [!conv] [:spec] }` starting at body[i]
// and returns the part and the index after the closing brace.
func (p *Parser) parseFStringField(fileID source.FileID, body string, i int, at func(int) uint32, raw bool) (ast.FStringPart, int) {
	exprEnd := scanFieldExpr(body, i)
	if exprEnd >= len(body) {
		p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(i - 1), End: at(len(body))}, "f-string: expecting '}'")
	}
	text := body[i:exprEnd]
	if strings.TrimSpace(text) == "" {
		p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(i - 1), End: at(exprEnd)}, "f-string: valid expression required before '}'")
	}

	part := ast.FStringPart{Expr: p.parseEmbeddedExpr(at(i), at(exprEnd))}
	j := exprEnd
	if body[j] == '=' {
		part.Debug = body[i : j+1]
		j++
		for j < len(body) && body[j] == ' ' {
			part.Debug += " "
			j++
		}
		part.Conversion = 'r'
	}
	if j < len(body) && body[j] == '!' {
		if j+1 >= len(body) || !strings.ContainsRune("sra", rune(body[j+1])) {
			p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(j), End: at(j + 1)}, "f-string: invalid conversion character: expected 's', 'r', or 'a'")
		}
		part.Conversion = body[j+1]
		j += 2
	}
	if j < len(body) && body[j] == ':' {
		specStart := j + 1
		depth := 0
		k := specStart
		for ; k < len(body); k++ {
			if body[k] == '{' {
				depth++
			} else if body[k] == '}' {
				if depth == 0 {
					break
				}
				depth--
			}
		}
		if k >= len(body) {
			p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(i - 1), End: at(len(body))}, "f-string: expecting '}'")
		}
		specParts := p.parseFStringBody(fileID, body[specStart:k], at(specStart), raw)
		part.Spec = &ast.FString{Pos: p.pos(source.Span{File: fileID, Start: at(specStart), End: at(k)}), Parts: specParts}
		if part.Debug != "" && part.Conversion == 'r' {
			part.Conversion = 0
		}
		j = k
	}
	if j >= len(body) || body[j] != '}' {
		p.failAt(diag.SynBadFString, source.Span{File: fileID, Start: at(i - 1), End: at(min(j, len(body)))}, "f-string: expecting '}'")
	}
	return part, j + 1
}

// scanFieldExpr finds where a replacement field expression ends: at a
// top-level '}', ':', '!' (not '!='), or a trailing '=' debug marker.
func scanFieldExpr(body string, i int) int {
	depth := 0
	for i < len(body) {
		c := body[i]
		switch {
		case c == '\'' || c == '"':
			end := strings.IndexByte(body[i+1:], c)
			if end < 0 {
				return len(body)
			}
			i += end + 2
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || (c == '}' && depth > 0):
			depth--
		case depth > 0:
		case c == '}' || c == ':':
			return i
		case c == '!' && (i+1 >= len(body) || body[i+1] != '='):
			return i
		case c == '=':
			prev := byte(0)
			if i > 0 {
				prev = body[i-1]
			}
			next := byte(0)
			if i+1 < len(body) {
				next = body[i+1]
			}
			if next != '=' && !strings.ContainsRune("=!<>", rune(prev)) {
				rest := strings.TrimLeft(body[i+1:], " ")
				if rest == "" || strings.ContainsRune("}!:", rune(rest[0])) {
					return i
				}
			}
			if next == '=' {
				i++
			}
		}
		i++
	}
	return len(body)
}

// parseEmbeddedExpr parses the expression in [start, end) of the current file.
func (p *Parser) parseEmbeddedExpr(start, end uint32) ast.Expr {
	sub := &Parser{
		lx:       lexer.New(p.file, lexer.Options{Reporter: p.opts.Reporter}),
		fs:       p.fs,
		file:     p.file,
		opts:     p.opts,
		lastSpan: source.Span{File: p.file.ID, Start: start, End: start},
		parens:   p.parens + 1,
		depth:    p.depth,
		funcs:    p.funcs,
		loops:    p.loops,
	}
	sub.lx.SetRange(start, end)
	e := sub.parseStarExpressions()
	if !sub.at(token.EOF) {
		sub.fail(diag.SynBadFString, "f-string: invalid syntax")
	}
	return e
}
