// Package highlight applies ANSI terminal syntax highlighting to
// captured command/frame text in the ommtap debug viewer, the way
// highlight.SQL colorized proxied queries.
package highlight

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
)

func init() {
	// STOMP frames are "COMMAND\nheader:value\n...\n\nbody" — the closest
	// off-the-shelf chroma lexer for that shape is the ini-family one
	// used for header:value-per-line text.
	lexer = lexers.Get("ini")
	formatter = formatters.Get("terminal256")
	style = styles.Get("monokai")
}

// Frame returns a STOMP frame's text (or an OpenWire command's debug
// string) with ANSI syntax highlighting applied. On error or empty
// input, the original string is returned unchanged.
func Frame(s string) string {
	if s == "" {
		return s
	}

	iterator, err := lexer.Tokenise(nil, s)
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}

	return strings.TrimRight(buf.String(), "\n")
}

var (
	commandRe = regexp.MustCompile(`(?m)^[A-Z][A-Z_]+$`)
	headerRe  = regexp.MustCompile(`(?m)^([a-zA-Z][\w-]*):(.*)$`)

	boldStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// Headers returns s (a frame or a pretty-printed Command) with its
// leading command keyword bolded and header names dimmed, mirroring
// highlight.Plan's node/metric emphasis but for frame shape instead of a
// query plan.
func Headers(s string) string {
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if commandRe.MatchString(line) {
			lines[i] = boldStyle.Render(line)
			continue
		}
		lines[i] = headerRe.ReplaceAllStringFunc(line, func(m string) string {
			parts := headerRe.FindStringSubmatch(m)
			if len(parts) != 3 {
				return m
			}
			return dimStyle.Render(parts[1]+":") + parts[2]
		})
	}
	return strings.Join(lines, "\n")
}
