// Package stats aggregates admission records into popularity rankings and
// per-school comparison figures.
package stats

import (
	"sort"

	"github.com/okian/huikao/internal/domain/model"
)

// ChartSize is the number of schools on the popularity chart.
const ChartSize = 5

// SchoolCount is the number of entries recorded for one school.
type SchoolCount struct {
	School string `json:"school"`
	Count  int    `json:"count"`
}

// Summary is the headline statistics block.
type Summary struct {
	TotalEntries int           `json:"totalEntries"`
	Popular      *SchoolCount  `json:"popular,omitempty"`
	TopSchools   []SchoolCount `json:"topSchools"`
}

// counts tallies entries per school in first-seen order.
func counts(entries []model.Entry) []SchoolCount {
	pos := make(map[string]int)
	out := make([]SchoolCount, 0)
	for _, e := range entries {
		i, ok := pos[e.School]
		if !ok {
			i = len(out)
			pos[e.School] = i
			out = append(out, SchoolCount{School: e.School})
		}
		out[i].Count++
	}
	return out
}

// Popularity returns the school with the most entries. Ties go to the school
// seen first. ok is false for an empty input.
func Popularity(entries []model.Entry) (SchoolCount, bool) {
	var best SchoolCount
	found := false
	for _, c := range counts(entries) {
		if !found || c.Count > best.Count {
			best, found = c, true
		}
	}
	return best, found
}

// TopSchools returns at most n schools by descending count; equal counts
// keep first-seen order.
func TopSchools(entries []model.Entry, n int) []SchoolCount {
	if n <= 0 {
		return []SchoolCount{}
	}
	all := counts(entries)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Count > all[j].Count })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Summarize builds the statistics block for entries.
func Summarize(entries []model.Entry) Summary {
	s := Summary{
		TotalEntries: len(entries),
		TopSchools:   TopSchools(entries, ChartSize),
	}
	if p, ok := Popularity(entries); ok {
		s.Popular = &p
	}
	return s
}
