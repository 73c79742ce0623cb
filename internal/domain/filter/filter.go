// Package filter evaluates admission records against a multi-field
// filter specification.
package filter

import (
	"strings"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
)

// Spec is the transient filter state of one session. Nil pointers mean the
// constraint is unset.
type Spec struct {
	Keyword     string                        `json:"keyword,omitempty"`
	Region      string                        `json:"region"`
	Year        *string                       `json:"year,omitempty"`
	ScoreMin    *float64                      `json:"scoreMin,omitempty"`
	ScoreMax    *float64                      `json:"scoreMax,omitempty"`
	Subjects    map[grade.Subject]grade.Grade `json:"subjects,omitempty"`
	Composition *model.Composition            `json:"composition,omitempty"`
}

// Default returns the cleared specification: every region, nothing else set.
func Default() Spec {
	return Spec{Region: model.RegionAll, Subjects: map[grade.Subject]grade.Grade{}}
}

// IsDefault reports whether s constrains nothing.
func (s Spec) IsDefault() bool {
	return strings.TrimSpace(s.Keyword) == "" &&
		(s.Region == "" || s.Region == model.RegionAll) &&
		s.Year == nil && !s.hasRange() &&
		len(s.Subjects) == 0 && s.Composition == nil
}

func (s Spec) hasRange() bool {
	return s.ScoreMin != nil && s.ScoreMax != nil
}

// Matches reports whether e satisfies every constraint of s.
func Matches(e model.Entry, s Spec) bool {
	return matchesKeyword(e, s.Keyword) &&
		matchesRegion(e, s.Region) &&
		(s.Year == nil || e.Year == *s.Year) &&
		matchesRange(e, s) &&
		matchesSubjects(e, s.Subjects) &&
		(s.Composition == nil || e.Composition == *s.Composition)
}

func matchesKeyword(e model.Entry, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.School), kw) ||
		strings.Contains(strings.ToLower(e.Department), kw)
}

func matchesRegion(e model.Entry, region string) bool {
	return region == "" || region == model.RegionAll || e.Region == region
}

// A range needs both bounds; an unparseable total never falls inside one.
func matchesRange(e model.Entry, s Spec) bool {
	if !s.hasRange() {
		return true
	}
	v, ok := e.Score()
	if !ok {
		return false
	}
	return v >= *s.ScoreMin && v <= *s.ScoreMax
}

func matchesSubjects(e model.Entry, required map[grade.Subject]grade.Grade) bool {
	for subject, g := range required {
		if e.Scores.Get(subject) != g {
			return false
		}
	}
	return true
}

// Apply returns the entries of all that match s, in input order. The input
// slice is never modified.
func Apply(all []model.Entry, s Spec) []model.Entry {
	out := make([]model.Entry, 0, len(all))
	for _, e := range all {
		if Matches(e, s) {
			out = append(out, e)
		}
	}
	return out
}
