package stats

import (
	"fmt"
	"strings"
)

// MaxSelection is the upper bound on schools compared side by side.
const MaxSelection = 4

// Selection is the ordered set of schools chosen for comparison. It is not
// safe for concurrent use; the owning session serialises access.
type Selection struct {
	limit   int
	schools []string
}

// NewSelection creates a selection holding at most limit schools. Limits
// outside 1..MaxSelection fall back to MaxSelection.
func NewSelection(limit int) *Selection {
	if limit < 1 || limit > MaxSelection {
		limit = MaxSelection
	}
	return &Selection{limit: limit}
}

// Add appends school to the selection.
func (s *Selection) Add(school string) error {
	school = strings.TrimSpace(school)
	if school == "" {
		return ErrEmptySchool
	}
	if s.Contains(school) {
		return fmt.Errorf("%w: %s", ErrAlreadySelected, school)
	}
	if len(s.schools) >= s.limit {
		return fmt.Errorf("%w: limit %d", ErrSelectionFull, s.limit)
	}
	s.schools = append(s.schools, school)
	return nil
}

// Remove drops school from the selection.
func (s *Selection) Remove(school string) error {
	school = strings.TrimSpace(school)
	for i, v := range s.schools {
		if v == school {
			s.schools = append(s.schools[:i], s.schools[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotSelected, school)
}

// Clear empties the selection.
func (s *Selection) Clear() { s.schools = nil }

// Contains reports whether school is selected.
func (s *Selection) Contains(school string) bool {
	for _, v := range s.schools {
		if v == school {
			return true
		}
	}
	return false
}

// Schools returns a copy of the selected names in insertion order.
func (s *Selection) Schools() []string {
	out := make([]string, len(s.schools))
	copy(out, s.schools)
	return out
}

// Len returns the number of selected schools.
func (s *Selection) Len() int { return len(s.schools) }

// Limit returns the capacity.
func (s *Selection) Limit() int { return s.limit }
