// Package tui renders a journey session as an interactive bowtie in the
// terminal.
//
// The model runs inside the bubbletea event loop. Session calls that reach
// the CRM or the classifier run as commands and report back as messages.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/journey"
	"github.com/sells-group/journey-mapper/internal/model"
)

// snapshotMsg carries the session state after a session operation.
type snapshotMsg struct {
	snap journey.Snapshot
	err  error
}

// searchMsg carries contact search results.
type searchMsg struct {
	query   string
	results []model.EntitySummary
	err     error
}

// Model is the bubbletea model for one session.
type Model struct {
	ctx     context.Context
	session *journey.Session

	snap       journey.Snapshot
	busy       string
	hideDetail bool

	searching   bool
	input       textinput.Model
	lastQuery   string
	results     []model.EntitySummary
	cursor      int
	searchError string

	width int
}

// New creates a Model. The session is opened by Init.
func New(ctx context.Context, session *journey.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "name or email"
	ti.CharLimit = 128
	return Model{
		ctx:     ctx,
		session: session,
		snap:    session.Snapshot(),
		busy:    "loading stages",
		input:   ti,
	}
}

// Snapshot returns the last state the model rendered.
func (m Model) Snapshot() journey.Snapshot { return m.snap }

func (m Model) Init() tea.Cmd {
	return m.run(m.session.Open)
}

func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		err := op(ctx)
		return snapshotMsg{snap: s.Snapshot(), err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		m.busy = ""
		return m, nil

	case searchMsg:
		m.busy = ""
		if msg.query != strings.TrimSpace(m.input.Value()) {
			return m, nil
		}
		m.lastQuery = msg.query
		m.results = msg.results
		m.cursor = 0
		m.searchError = ""
		if msg.err != nil {
			m.searchError = msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateView(msg)
	}
	return m, nil
}

func (m Model) updateView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "1", "2", "3", "4", "5", "6":
		id := bowtie.IDs()[int(key[0]-'1')]
		_ = m.session.Toggle(id)
		m.snap = m.session.Snapshot()
		m.hideDetail = false
		return m, nil
	case "esc":
		m.hideDetail = true
		return m, nil
	case "r":
		if m.busy != "" {
			return m, nil
		}
		m.busy = "regenerating mapping"
		return m, m.run(m.session.Regenerate)
	case "c":
		m.session.ClearEntity()
		m.snap = m.session.Snapshot()
		return m, nil
	case "d":
		m.session.DismissNotice()
		m.snap = m.session.Snapshot()
		return m, nil
	case "/":
		m.searching = true
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		if q == m.lastQuery && len(m.results) > 0 {
			picked := m.results[m.cursor]
			m.searching = false
			m.input.Blur()
			m.busy = "loading " + picked.DisplayName()
			return m, m.run(func(ctx context.Context) error {
				return m.session.SelectEntity(ctx, picked.ID)
			})
		}
		m.busy = "searching"
		ctx, s := m.ctx, m.session
		return m, func() tea.Msg {
			results, err := s.Search(ctx, q)
			return searchMsg{query: q, results: results, err: err}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if strings.TrimSpace(m.input.Value()) != m.lastQuery {
		m.results = nil
		m.cursor = 0
	}
	return m, cmd
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, session *journey.Session) error {
	_, err := tea.NewProgram(New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
