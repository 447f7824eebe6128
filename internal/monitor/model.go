// Package monitor renders a live view of a running curriculum: one row per
// agent plus the most recent decisions.
package monitor

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/orchestrator"
	"github.com/abhisek/scaffold/internal/ui/components"
	"github.com/abhisek/scaffold/internal/ui/layout"
	"github.com/abhisek/scaffold/internal/ui/theme"
)

// maxLogLines bounds the decision log below the agent table.
const maxLogLines = 8

// EventMsg carries an orchestrator event into the program.
type EventMsg orchestrator.Event

// DoneMsg reports that the run returned.
type DoneMsg struct {
	Summary orchestrator.Summary
	Err     error
}

type keyMap struct {
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type agentRow struct {
	id        string
	status    orchestrator.Status
	step      string
	attempt   int
	completed map[int]bool
	decision  string
	note      string
}

// Model is the monitor's bubbletea model.
type Model struct {
	curriculum string
	totalSteps int
	rows       []*agentRow
	index      map[string]int
	log        []string
	tick       int

	done    bool
	summary orchestrator.Summary
	err     error

	width  int
	height int
	keys   keyMap
	cancel context.CancelFunc
}

// New creates a Model for c with one row per agent, in the given order.
// cancel, when set, is called when the user quits.
func New(c *curriculum.Curriculum, agentIDs []string, cancel context.CancelFunc) Model {
	m := Model{
		curriculum: c.Name(),
		totalSteps: c.Len(),
		index:      make(map[string]int, len(agentIDs)),
		keys:       defaultKeys(),
		cancel:     cancel,
	}
	for _, id := range agentIDs {
		m.row(id)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case EventMsg:
		m.apply(orchestrator.Event(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

// row returns the row for id, adding one for agents seen for the first time.
func (m *Model) row(id string) *agentRow {
	if i, ok := m.index[id]; ok {
		return m.rows[i]
	}
	r := &agentRow{id: id, completed: make(map[int]bool)}
	m.index[id] = len(m.rows)
	m.rows = append(m.rows, r)
	return r
}

func (m *Model) apply(e orchestrator.Event) {
	m.tick = max(m.tick, e.Tick)
	r := m.row(e.AgentID)
	r.step = e.StepName
	r.attempt = e.Attempt

	switch e.Kind {
	case orchestrator.EventStepAttemptStart:
		r.status = orchestrator.InStep
		r.note = ""
	case orchestrator.EventStepCompleted:
		r.status = orchestrator.CompletedStep
		r.completed[e.StepOrder] = true
		m.appendLog(e, "completed")
	case orchestrator.EventAdaptationDecision:
		r.status = orchestrator.Adapting
		r.decision = e.Decision
		m.appendLog(e, e.Decision)
	case orchestrator.EventHintApplied:
		r.decision = e.Decision
		r.note = e.Message
	case orchestrator.EventConfigurationWarning:
		r.note = e.Message
	case orchestrator.EventCurriculumFinished:
		r.status = orchestrator.Finished
		m.appendLog(e, "finished")
	case orchestrator.EventCurriculumFailed:
		r.status = orchestrator.Failed
		r.note = e.Message
		m.appendLog(e, "failed: "+e.Message)
	}
}

func (m *Model) appendLog(e orchestrator.Event, what string) {
	line := fmt.Sprintf("t%-3d %-12s %s #%d  %s", e.Tick, e.AgentID, e.StepName, e.Attempt, what)
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render draws the whole screen. It is empty until the window size is known.
func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	header := layout.RenderHeader("scaffold · "+m.curriculum, m.headerStatus(), m.width)
	footer := layout.RenderFooter([]layout.KeyHint{{Key: "q", Description: "Quit"}}, m.width)
	return layout.RenderFrame(header, m.body(), footer, m.width, m.height)
}

func (m Model) headerStatus() string {
	var finished, failed int
	for _, r := range m.rows {
		switch r.status {
		case orchestrator.Finished:
			finished++
		case orchestrator.Failed:
			failed++
		}
	}
	s := fmt.Sprintf("tick %d  ✓ %d  ✗ %d  / %d", m.tick, finished, failed, len(m.rows))
	if m.done {
		s += "  done"
	}
	return s
}

func (m Model) body() string {
	var b strings.Builder

	b.WriteString(theme.ColumnHeader.Render(fmt.Sprintf("%-14s %-15s %-18s %-4s %-22s %s",
		"AGENT", "STATUS", "STEP", "TRY", "PROGRESS", "LAST DECISION")))
	b.WriteString("\n")

	for _, r := range m.rows {
		bar := components.NewProgressBar(len(r.completed), m.totalSteps, 22, true)
		line := fmt.Sprintf("%-14s %s %-18s %-4d %s %s",
			truncate(r.id, 14),
			statusStyle(r.status).Render(fmt.Sprintf("%-15s", r.status)),
			truncate(r.step, 18),
			r.attempt,
			bar.View(),
			r.decision,
		)
		b.WriteString(line)
		b.WriteString("\n")
		if r.note != "" {
			b.WriteString(theme.WarningText.Render("  " + truncate(r.note, max(m.width-4, 10))))
			b.WriteString("\n")
		}
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.ColumnHeader.Render("RECENT"))
		b.WriteString("\n")
		b.WriteString(theme.Dim.Render(strings.Join(m.log, "\n")))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("\n")
		b.WriteString(m.summaryLine())
	}
	return b.String()
}

func (m Model) summaryLine() string {
	if m.err != nil {
		return theme.StatusFailed.Render("run stopped: " + m.err.Error())
	}
	s := m.summary
	line := fmt.Sprintf("run %s finished after %d ticks: %d finished, %d failed, %d active",
		s.RunID, s.Ticks, s.Finished, s.Failed, s.Active)
	if s.BudgetExhausted {
		line += " (tick budget exhausted)"
	}
	return lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(line)
}

func statusStyle(s orchestrator.Status) lipgloss.Style {
	switch s {
	case orchestrator.InStep, orchestrator.CompletedStep:
		return theme.StatusActive
	case orchestrator.Adapting:
		return theme.StatusAdapting
	case orchestrator.Finished:
		return theme.StatusFinished
	case orchestrator.Failed:
		return theme.StatusFailed
	default:
		return theme.StatusPending
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
