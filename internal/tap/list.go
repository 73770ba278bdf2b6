package tap

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	footerStyle   = lipgloss.NewStyle().Faint(true)
	errRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderList draws the scrollable capture list: one row per (filtered)
// Entry, newest at the bottom, the selected row reverse-video.
func (m Model) renderList() string {
	rows := m.filtered()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("ommtap — %d captured", len(m.entries))))
	b.WriteString("\n")

	visible := m.listHeight()
	start := 0
	if len(rows) > visible {
		start = len(rows) - visible
	}
	if m.cursor < start {
		start = m.cursor
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
	}

	for i := start; i < end; i++ {
		line := Summary(rows[i])
		if rows[i].Err != nil || rows[i].Storm != nil {
			line = errRowStyle.Render(line)
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) listHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 20
	}
	return h
}

func (m Model) renderFooter() string {
	if m.filterMode {
		return footerStyle.Render(fmt.Sprintf("/%s_  (enter to apply, esc to cancel)", m.filterQuery))
	}
	hint := "↑/↓ move  tab switch view  / filter  y copy  q quit"
	if m.filterQuery != "" {
		hint = fmt.Sprintf("filter=%q  %s", m.filterQuery, hint)
	}
	if m.copyErr != nil {
		hint = fmt.Sprintf("copy failed: %v  %s", m.copyErr, hint)
	}
	return footerStyle.Render(hint)
}
