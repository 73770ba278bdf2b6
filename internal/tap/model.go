package tap

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corvidmq/ommq/internal/tap/clipboard"
)

type viewMode int

const (
	viewList viewMode = iota
	viewInspect
	viewAnalytics
)

// entryMsg wraps a newly captured Entry as a bubbletea message.
type entryMsg Entry

// Model is the Bubble Tea model driving ommtap's live capture view: a
// scrollable list of captured commands (list.go), an inspector detail
// pane (inspector.go), and a per-type breakdown, fed directly by a
// Tap's Subscribe channel.
type Model struct {
	sub <-chan Entry

	entries []Entry
	cursor  int
	view    viewMode
	width   int
	height  int

	filterMode  bool
	filterQuery string

	copyErr error
}

// NewModel returns a Model seeded with t's already-captured history and
// subscribed to everything captured from now on.
func NewModel(t *Tap) Model {
	return Model{entries: t.Entries(), sub: t.Subscribe()}
}

func waitForEntry(sub <-chan Entry) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub
		if !ok {
			return nil
		}
		return entryMsg(e)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEntry(m.sub)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entryMsg:
		m.entries = append(m.entries, Entry(msg))
		return m, waitForEntry(m.sub)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.filterMode {
			return m.updateFilterKey(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.filterMode = false
	case "backspace":
		if n := len(m.filterQuery); n > 0 {
			m.filterQuery = m.filterQuery[:n-1]
		}
	default:
		if len(msg.Runes) == 1 {
			m.filterQuery += string(msg.Runes)
		}
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.filtered()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "tab":
		m.view = (m.view + 1) % 3
	case "/":
		m.filterMode = true
		m.filterQuery = ""
	case "y":
		if e, ok := m.selected(); ok {
			m.copyErr = clipboard.Copy(context.Background(), Detail(e))
		}
	}
	return m, nil
}

func (m Model) filtered() []Entry {
	return Filter(m.entries, m.filterQuery)
}

func (m Model) selected() (Entry, bool) {
	rows := m.filtered()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return Entry{}, false
	}
	return rows[m.cursor], true
}

func (m Model) View() string {
	switch m.view {
	case viewInspect:
		return m.renderInspector()
	case viewAnalytics:
		return m.renderAnalytics()
	default:
		return m.renderList()
	}
}
