// Package ui renders live progress of a traced run on a terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pytrace/internal/sandbox"
)

// ChannelSink forwards progress to a channel without blocking the run.
// Updates are dropped while the channel is full; the next one catches up.
type ChannelSink struct {
	Ch chan<- sandbox.Progress
}

func (s ChannelSink) Report(p sandbox.Progress) {
	select {
	case s.Ch <- p:
	default:
	}
}

type progressModel struct {
	title    string
	events   <-chan sandbox.Progress
	spinner  spinner.Model
	prog     progress.Model
	steps    int
	line     int
	maxSteps int
	width    int
	done     bool
}

type eventMsg sandbox.Progress
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that follows a run's steps
// until events is closed. maxSteps scales the bar; 0 hides it.
func NewProgressModel(title string, maxSteps int, events <-chan sandbox.Progress) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:    title,
		events:   events,
		spinner:  sp,
		prog:     prog,
		maxSteps: maxSteps,
		width:    80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.apply(sandbox.Progress(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	title := truncate(m.title, m.width-12)
	header := fmt.Sprintf("%s tracing %s", m.spinner.View(), title)
	if m.done {
		header = fmt.Sprintf("done: %s", title)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	counter := fmt.Sprintf("%d", m.steps)
	if m.maxSteps > 0 {
		counter = fmt.Sprintf("%d/%d", m.steps, m.maxSteps)
	}
	b.WriteString(fmt.Sprintf("  %s %s", statusStyle.Render(fmt.Sprintf("%8s", "steps")), counter))
	if m.line > 0 {
		b.WriteString(fmt.Sprintf("  line %d", m.line))
	}
	b.WriteString("\n")

	if m.maxSteps > 0 {
		b.WriteString("\n")
		if m.done {
			b.WriteString(m.prog.ViewAs(m.fraction()))
		} else {
			b.WriteString(m.prog.View())
		}
		b.WriteString("\n")
	}
	return b.String()
}

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) apply(p sandbox.Progress) tea.Cmd {
	if p.Steps < m.steps {
		return nil
	}
	m.steps = p.Steps
	m.line = p.Line
	if p.MaxSteps > 0 {
		m.maxSteps = p.MaxSteps
	}
	if m.maxSteps <= 0 {
		return nil
	}
	return m.prog.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if m.maxSteps <= 0 {
		return 0
	}
	return min(float64(m.steps)/float64(m.maxSteps), 1)
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
