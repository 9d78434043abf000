// Package observ measures how long the phases of a run take.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one timed step of a run.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases in the order they begin. A nil *Timer ignores all
// calls, so callers need not check whether timings are enabled.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 4)} }

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the phase at idx.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Duration returns the recorded duration of the named phase.
func (t *Timer) Duration(name string) (time.Duration, bool) {
	if t == nil {
		return 0, false
	}
	for _, p := range t.phases {
		if p.Name == name {
			return p.Dur, true
		}
	}
	return 0, false
}

// Summary renders the phases as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-10s %9.3f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  (" + p.Note + ")")
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-10s %9.3f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport is the serialisable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serialisable form of a Timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		report.Phases[i] = PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
	}
	report.TotalMS = millis(total)
	return report
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
