// Package ordering sorts admission records and partitions them by school
// for rendering.
package ordering

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/huikao/internal/domain/model"
)

// Mode selects the display order.
type Mode string

// Supported sort modes.
const (
	// Newest keeps the input order; entries arrive newest first.
	Newest  Mode = "newest"
	Highest Mode = "highest"
	Lowest  Mode = "lowest"
)

// ParseMode validates a sort mode. Blank selects Newest.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Newest, nil
	case Newest, Highest, Lowest:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Sort returns a reordered copy of entries. Numeric modes are stable: equal
// totals keep their relative input order, and entries whose total does not
// parse keep their relative order after all numeric ones.
func Sort(entries []model.Entry, mode Mode) []model.Entry {
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	if mode != Highest && mode != Lowest {
		return out
	}

	type keyed struct {
		score float64
		ok    bool
	}
	keys := make([]keyed, len(out))
	for i, e := range out {
		keys[i].score, keys[i].ok = e.Score()
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		if !ka.ok {
			return false
		}
		if mode == Highest {
			return ka.score > kb.score
		}
		return ka.score < kb.score
	})

	sorted := make([]model.Entry, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// Group is one school's slice of the displayed entries.
type Group struct {
	School  string        `json:"school"`
	Count   int           `json:"count"`
	Entries []model.Entry `json:"entries"`
}

// GroupBySchool partitions entries by school, keeping first-seen school
// order and insertion order within each school.
func GroupBySchool(entries []model.Entry) []Group {
	pos := make(map[string]int)
	groups := make([]Group, 0)
	for _, e := range entries {
		i, ok := pos[e.School]
		if !ok {
			i = len(groups)
			pos[e.School] = i
			groups = append(groups, Group{School: e.School})
		}
		groups[i].Entries = append(groups[i].Entries, e)
		groups[i].Count++
	}
	return groups
}

// Flatten concatenates groups back into a single slice.
func Flatten(groups []Group) []model.Entry {
	n := 0
	for _, g := range groups {
		n += len(g.Entries)
	}
	out := make([]model.Entry, 0, n)
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}
