package tap

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/corvidmq/ommq/internal/tap/highlight"
)

// renderInspector draws the full-detail view of the currently selected
// Entry, with header lines dimmed via highlight.Headers and each line
// cut to the terminal width so a long message body doesn't wrap.
func (m Model) renderInspector() string {
	e, ok := m.selected()
	if !ok {
		return headerStyle.Render("ommtap — inspect") + "\n" + footerStyle.Render("(nothing selected)")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("ommtap — inspect #%d", e.Seq)))
	b.WriteString("\n")
	b.WriteString(m.clipWidth(highlight.Headers(Detail(e))))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// clipWidth cuts each line of s to [0, m.width) columns, honoring the
// ANSI escapes highlight.Headers already applied, so styled text isn't
// split mid-sequence.
func (m Model) clipWidth(s string) string {
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Cut(line, 0, m.width)
	}
	return strings.Join(lines, "\n")
}

// renderAnalytics draws the per-command-type breakdown over the current
// (filtered) capture.
func (m Model) renderAnalytics() string {
	a := Analyze(m.filtered())

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("ommtap — analytics (%d total, %d errors, span %s)", a.Total, a.Errors, Span(m.filtered()))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-24s %8s %8s\n", "type", "out", "in")
	for _, tc := range a.Types {
		fmt.Fprintf(&b, "%-24s %8d %8d\n", tc.Type, tc.Outbound, tc.Inbound)
	}
	if len(a.Selectors) > 0 {
		b.WriteString("\nselectors:\n")
		for _, sc := range a.Selectors {
			fmt.Fprintf(&b, "%4d  %s\n", sc.Count, sc.Normalized)
		}
	}
	b.WriteString(m.renderFooter())
	return b.String()
}
