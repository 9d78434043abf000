package driver

import (
	"pytrace/internal/diag"
	"pytrace/internal/lexer"
	"pytrace/internal/parser"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

// TokenizeResult is the token stream of one file.
type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// Tokenize lexes the file at path, collecting lexical diagnostics.
func Tokenize(path string, maxDiagnostics int) (*TokenizeResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, &SetupError{Op: "read", Path: path, Err: err}
	}
	file := fs.Get(id)
	bag := diag.NewBag(maxDiagnostics)
	lx := lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	var tokens []token.Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return &TokenizeResult{FileSet: fs, File: file, Tokens: tokens, Bag: bag}, nil
}

// CheckResult holds the syntax diagnostics of one file.
type CheckResult struct {
	FileSet *source.FileSet
	File    *source.File
	Bag     *diag.Bag
}

// Check parses the file at path without running it.
func Check(path string, maxDiagnostics int) (*CheckResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, &SetupError{Op: "read", Path: path, Err: err}
	}
	bag := diag.NewBag(maxDiagnostics)
	parser.ParseFile(fs, fs.Get(id), parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	bag.Sort()
	bag.Dedup()
	return &CheckResult{FileSet: fs, File: fs.Get(id), Bag: bag}, nil
}
