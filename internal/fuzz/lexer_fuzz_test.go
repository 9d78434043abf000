package fuzztests

import (
	"testing"

	"pytrace/internal/diag"
	"pytrace/internal/lexer"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.py", input))

		bag := diag.NewBag(64)
		lx := lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
		// Every token consumes input or is layout, so the stream is bounded.
		limit := 4*len(input) + 64
		for i := 0; ; i++ {
			if i > limit {
				t.Fatalf("lexer produced more than %d tokens for %d bytes", limit, len(input))
			}
			if lx.Next().Kind == token.EOF {
				break
			}
		}
	})
}
