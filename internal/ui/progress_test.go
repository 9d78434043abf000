package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"pytrace/internal/sandbox"
)

func TestModelFollowsProgress(t *testing.T) {
	events := make(chan sandbox.Progress)
	m := NewProgressModel("main.py", 100, events).(*progressModel)

	m.Update(eventMsg(sandbox.Progress{Steps: 3, Line: 7, MaxSteps: 100}))
	view := m.View()
	if !strings.Contains(view, "3/100") || !strings.Contains(view, "line 7") {
		t.Fatalf("view:\n%s", view)
	}
	if got := m.fraction(); got != 0.03 {
		t.Fatalf("fraction = %v, want 0.03", got)
	}

	m.Update(eventMsg(sandbox.Progress{Steps: 2, Line: 1, MaxSteps: 100}))
	if m.steps != 3 {
		t.Fatalf("stale progress applied: steps = %d", m.steps)
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatalf("done did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("done cmd is not quit")
	}
	if !strings.Contains(m.View(), "done: main.py") {
		t.Fatalf("final view:\n%s", m.View())
	}
}

func TestModelWithoutCeilingHidesBar(t *testing.T) {
	m := NewProgressModel("loop.py", 0, nil).(*progressModel)
	m.Update(eventMsg(sandbox.Progress{Steps: 42, Line: 2}))
	view := m.View()
	if !strings.Contains(view, " 42") || strings.Contains(view, "/") {
		t.Fatalf("view:\n%s", view)
	}
	if m.fraction() != 0 {
		t.Fatalf("fraction = %v", m.fraction())
	}
}

func TestListenReportsClose(t *testing.T) {
	events := make(chan sandbox.Progress, 1)
	m := NewProgressModel("main.py", 10, events).(*progressModel)
	events <- sandbox.Progress{Steps: 1, Line: 1, MaxSteps: 10}
	close(events)
	if _, ok := m.listenForEvent()().(eventMsg); !ok {
		t.Fatalf("first message is not an event")
	}
	if _, ok := m.listenForEvent()().(doneMsg); !ok {
		t.Fatalf("closed channel did not report done")
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	ch := make(chan sandbox.Progress, 1)
	sink := ChannelSink{Ch: ch}
	sink.Report(sandbox.Progress{Steps: 1})
	sink.Report(sandbox.Progress{Steps: 2})
	if got := <-ch; got.Steps != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.py", 20, "short.py"},
		{"a/very/long/path/to/script.py", 10, "a/very/..."},
		{"ab", 0, "ab"},
		{"abcdef", 3, "abc"},
		{"abcdef", 5, "ab..."},
		{"日本語のパス.py", 8, "日本..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
