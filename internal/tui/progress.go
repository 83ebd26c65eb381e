// Package tui renders run progress in the terminal. It follows The Elm
// Architecture via bubbletea: the model holds per-section status, updates
// arrive as messages from the orchestrator's event stream, and the view
// renders the board.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/revision"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type sectionStatus struct {
	id        string
	title     string
	iteration int
	phase     revision.Phase
	outcome   revision.Outcome
	started   bool
}

// EventMsg wraps an orchestrator progress event.
type EventMsg revision.Event

// DoneMsg signals that the run finished, successfully or not.
type DoneMsg struct {
	Err error
}

// Model is the progress board state.
type Model struct {
	week     int
	spinner  spinner.Model
	sections []sectionStatus
	index    map[string]int
	events   <-chan revision.Event
	done     bool
	err      error
}

// New builds the board for the given section plan. Events are consumed
// from the channel until it is closed or a DoneMsg arrives.
func New(week int, specs []course.SectionSpec, events <-chan revision.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeStyle

	m := Model{
		week:    week,
		spinner: sp,
		events:  events,
		index:   make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		m.sections = append(m.sections, sectionStatus{id: spec.ID, title: spec.Title})
		m.index[spec.ID] = i
	}
	return m
}

// Init starts the spinner and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return EventMsg(event)
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case EventMsg:
		m.apply(revision.Event(msg))
		return m, m.waitForEvent()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(event revision.Event) {
	idx, ok := m.index[event.SectionID]
	if !ok {
		return
	}
	status := &m.sections[idx]
	status.started = true
	status.iteration = event.Iteration
	status.phase = event.Phase
	if event.Phase == revision.PhaseDone {
		status.outcome = event.Outcome
	}
}

// View renders the board.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("courseforge · week %d", m.week)))
	b.WriteString("\n\n")
	for _, s := range m.sections {
		b.WriteString(m.renderSection(s))
		b.WriteString("\n")
	}
	if m.done {
		if m.err != nil {
			b.WriteString("\n" + errStyle.Render("run failed: "+m.err.Error()) + "\n")
		} else {
			b.WriteString("\n" + okStyle.Render("run complete") + "\n")
		}
	}
	b.WriteString(helpStyle.Render("q to quit"))
	return b.String()
}

func (m Model) renderSection(s sectionStatus) string {
	switch {
	case s.outcome == revision.OutcomeApproved:
		return fmt.Sprintf("%s %s  approved after %d iteration(s)",
			okStyle.Render("✓"), s.title, s.iteration+1)
	case s.outcome == revision.OutcomeForceApproved:
		return fmt.Sprintf("%s %s  force-approved after %d iteration(s)",
			warnStyle.Render("!"), s.title, s.iteration+1)
	case s.outcome == revision.OutcomeRolledBack:
		return fmt.Sprintf("%s %s  rolled back to an earlier draft",
			warnStyle.Render("↩"), s.title)
	case s.started:
		return fmt.Sprintf("%s %s  %s (iteration %d)",
			m.spinner.View(), s.title, s.phase, s.iteration)
	default:
		return pendingStyle.Render("• " + s.title + "  waiting")
	}
}
