package tap

import (
	"sort"

	"github.com/corvidmq/ommq/command"
	"github.com/corvidmq/ommq/selector"
)

// TypeCount is one row of the analytics breakdown: how many captured
// Entries of a given command type, split by direction.
type TypeCount struct {
	Type     string
	Outbound int
	Inbound  int
	Errors   int
}

// SelectorCount is one row of the selector breakdown: how many
// ConsumerInfos in the capture subscribed with a selector that
// normalizes (via selector.Normalize) to the same shape.
type SelectorCount struct {
	Normalized string
	Count      int
}

// Analytics summarizes a capture: per-type counts sorted by total volume
// descending, the overall exception count, and consumer selectors
// grouped by normalized shape.
type Analytics struct {
	Total     int
	Errors    int
	Types     []TypeCount
	Selectors []SelectorCount
}

// Analyze computes an Analytics summary over entries.
func Analyze(entries []Entry) Analytics {
	byType := make(map[string]*TypeCount)
	bySelector := make(map[string]int)
	a := Analytics{Total: len(entries)}

	for _, e := range entries {
		if e.Err != nil {
			a.Errors++
			continue
		}
		name := typeName(e.Command)
		tc, ok := byType[name]
		if !ok {
			tc = &TypeCount{Type: name}
			byType[name] = tc
		}
		if e.Direction == Outbound {
			tc.Outbound++
		} else {
			tc.Inbound++
		}

		if ci, ok := e.Command.(*command.ConsumerInfo); ok && ci.Selector != "" {
			bySelector[selector.Normalize(ci.Selector)]++
		}
	}

	for _, tc := range byType {
		a.Types = append(a.Types, *tc)
	}
	sort.Slice(a.Types, func(i, j int) bool {
		total := func(t TypeCount) int { return t.Outbound + t.Inbound }
		if total(a.Types[i]) != total(a.Types[j]) {
			return total(a.Types[i]) > total(a.Types[j])
		}
		return a.Types[i].Type < a.Types[j].Type
	})

	for s, n := range bySelector {
		a.Selectors = append(a.Selectors, SelectorCount{Normalized: s, Count: n})
	}
	sort.Slice(a.Selectors, func(i, j int) bool {
		if a.Selectors[i].Count != a.Selectors[j].Count {
			return a.Selectors[i].Count > a.Selectors[j].Count
		}
		return a.Selectors[i].Normalized < a.Selectors[j].Normalized
	})

	return a
}
