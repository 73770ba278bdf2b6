// Package selector helps build and group the SQL-92-like boolean
// expressions OpenWire/STOMP consumers use to filter dispatch (the
// ConsumerInfo.Selector / "selector" header): Bind fills "?" placeholders
// in a selector template with literal values, and Normalize collapses
// literal values back out so structurally identical selectors can be
// grouped.
package selector

import (
	"strconv"
	"strings"
)

// Bind replaces each "?" placeholder in expr with the corresponding
// value from args, quoting non-numeric, non-boolean, non-null values as
// selector string literals. A selector built this way is ready to pass
// as ConsumerInfo.Selector / client.ConsumerOptions.Selector.
func Bind(expr string, args []string) string {
	if len(args) == 0 {
		return expr
	}

	var b strings.Builder
	argIdx := 0
	for i := range len(expr) {
		if expr[i] == '?' && argIdx < len(args) {
			b.WriteString(quoteArg(args[argIdx]))
			argIdx++
		} else {
			b.WriteByte(expr[i])
		}
	}
	return b.String()
}

// quoteArg wraps a non-numeric, non-boolean, non-null arg in single
// quotes, escaping internal quotes the way the selector grammar expects.
func quoteArg(s string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	switch s {
	case "true", "false", "null", "NULL":
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
