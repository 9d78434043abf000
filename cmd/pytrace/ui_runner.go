package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"pytrace/internal/driver"
	"pytrace/internal/record"
	"pytrace/internal/sandbox"
	"pytrace/internal/ui"
)

type runOutcome struct {
	trace *record.Trace
	err   error
}

// runWithUI executes the script on a worker goroutine while the progress
// model draws on out. The worker owns the trace until it is handed back.
func runWithUI(ctx context.Context, log *slog.Logger, path string, opts driver.Options, out io.Writer) (*record.Trace, error) {
	events := make(chan sandbox.Progress, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		o := opts
		o.Progress = ui.ChannelSink{Ch: events}.Report
		tr, err := driver.Run(ctx, path, o)
		outcomeCh <- runOutcome{trace: tr, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(filepath.Base(path), opts.MaxSteps, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		log.Warn("progress display failed", "err", uiErr)
	}
	return outcome.trace, outcome.err
}
