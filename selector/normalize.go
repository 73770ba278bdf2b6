package selector

import "strings"

// Normalize replaces literal values in a selector expression with
// placeholders, so that structurally identical selectors (e.g. "color =
// 'red'" and "color = 'blue'") group together. String literals ('...')
// become '?', standalone numeric literals become ?, and consecutive
// whitespace collapses to a single space.
func Normalize(expr string) string {
	if expr == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(expr))

	i := 0
	prevSpace := false
	for i < len(expr) {
		ch := expr[i]

		if ch == '\'' {
			i = normalizeString(&b, expr, i)
			prevSpace = false
			continue
		}

		if isDigit(ch) && (i == 0 || isNumBoundary(expr[i-1])) {
			if next, ok := normalizeNumber(&b, expr, i); ok {
				i = next
				prevSpace = false
				continue
			}
		}

		if isSpace(ch) {
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
				prevSpace = true
			}
			i++
			continue
		}

		b.WriteByte(ch)
		i++
		prevSpace = false
	}

	return strings.TrimRight(b.String(), " ")
}

// normalizeString replaces a string literal starting at pos with '?'.
func normalizeString(b *strings.Builder, expr string, pos int) int {
	j := pos + 1
	for j < len(expr) {
		if expr[j] == '\'' && j+1 < len(expr) && expr[j+1] == '\'' {
			j += 2
			continue
		}
		if expr[j] == '\'' {
			j++
			break
		}
		j++
	}
	b.WriteString("'?'")
	return j
}

// normalizeNumber replaces a numeric literal at pos with an unquoted ?.
// Returns (newPos, true) if replaced, or (0, false) if not standalone.
func normalizeNumber(b *strings.Builder, expr string, pos int) (int, bool) {
	j := pos + 1
	for j < len(expr) && (isDigit(expr[j]) || expr[j] == '.') {
		j++
	}
	if j >= len(expr) || isNumBoundary(expr[j]) {
		b.WriteByte('?')
		return j, true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNumBoundary(c byte) bool {
	return isSpace(c) ||
		c == ',' || c == '(' || c == ')' || c == '=' ||
		c == '<' || c == '>' || c == '+' || c == '-' ||
		c == '*' || c == '/' || c == ';'
}
