package fuzztests

import (
	"context"
	"strings"
	"testing"
	"time"

	"pytrace/internal/driver"
	"pytrace/internal/testkit"
)

// FuzzDriverAlwaysFinalizes runs arbitrary scripts under tight limits: every
// run must end in a trace whose last step is the terminal one.
func FuzzDriverAlwaysFinalizes(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		opts := driver.DefaultOptions()
		opts.MaxSteps = 500
		opts.Timeout = 500 * time.Millisecond
		opts.MaxOutput = 1 << 14
		opts.MaxDepth = 50

		tr := driver.RunSource(context.Background(), "fuzz.py", input, opts)
		if tr == nil || tr.Len() == 0 {
			t.Fatalf("no trace for %q", truncateForLog(input, 200))
		}
		if err := testkit.CheckTraceInvariants(tr); err != nil {
			t.Fatalf("%v\ninput: %q", err, truncateForLog(input, 200))
		}
		if tr.Len() > opts.MaxSteps+1 {
			t.Fatalf("steps = %d over the ceiling", tr.Len())
		}
		if strings.Contains(tr.Last().Stdout, "InternalError") {
			t.Fatalf("interpreter panicked: %s\ninput: %q", tr.Last().Stdout, truncateForLog(input, 200))
		}
	})
}
