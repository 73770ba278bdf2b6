package tap

import "strings"

// Filter narrows a slice of Entry down to those whose Summary contains
// query, case-insensitively. An empty query matches everything.
func Filter(entries []Entry, query string) []Entry {
	if query == "" {
		return entries
	}
	q := strings.ToLower(query)

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(Summary(e)), q) {
			out = append(out, e)
		}
	}
	return out
}
