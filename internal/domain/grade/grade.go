// Package grade holds the fixed conversion tables for exam grade labels.
//
// Two independent schemes exist: approximate-score weights (used for the
// ranking total, together with the composition weight) and credit-point
// weights (used for the secondary points total).
package grade

import "fmt"

// Grade is a subject performance band label.
type Grade string

// Grade labels, highest to lowest.
const (
	APlusPlus Grade = "A++"
	APlus     Grade = "A+"
	A         Grade = "A"
	BPlusPlus Grade = "B++"
	BPlus     Grade = "B+"
	B         Grade = "B"
	C         Grade = "C"
)

// Grades is the canonical ordering of all labels, highest first.
var Grades = []Grade{APlusPlus, APlus, A, BPlusPlus, BPlus, B, C} //nolint:gochecknoglobals // fixed table

// Subject identifies one of the five examined subjects.
type Subject string

// Subject keys as they appear on the wire.
const (
	Chinese Subject = "chinese"
	English Subject = "english"
	Math    Subject = "math"
	Science Subject = "science"
	Social  Subject = "social"
)

// Subjects is the canonical subject order.
var Subjects = []Subject{Chinese, English, Math, Science, Social} //nolint:gochecknoglobals // fixed table

// Composition level bounds.
const (
	MinComposition = 0
	MaxComposition = 6
)

var approximateWeights = map[Grade]int{ //nolint:gochecknoglobals // fixed table
	APlusPlus: 6, APlus: 6, A: 6,
	BPlusPlus: 4, BPlus: 4, B: 4,
	C: 2,
}

var creditWeights = map[Grade]int{ //nolint:gochecknoglobals // fixed table
	APlusPlus: 7, APlus: 6, A: 5,
	BPlusPlus: 4, BPlus: 3, B: 2,
	C: 1,
}

var compositionWeights = [...]int{0, 1, 2, 2, 3, 3, 3}

var subjectLabels = map[Subject]string{ //nolint:gochecknoglobals // fixed table
	Chinese: "國文",
	English: "英文",
	Math:    "數學",
	Science: "自然",
	Social:  "社會",
}

// ApproximateWeight returns the approximate-score contribution of g.
func ApproximateWeight(g Grade) (int, bool) {
	w, ok := approximateWeights[g]
	return w, ok
}

// CreditWeight returns the credit-point contribution of g.
func CreditWeight(g Grade) (int, bool) {
	w, ok := creditWeights[g]
	return w, ok
}

// CompositionWeight returns the approximate-score contribution of an essay level.
func CompositionWeight(level int) (int, bool) {
	if level < MinComposition || level > MaxComposition {
		return 0, false
	}
	return compositionWeights[level], true
}

// Valid reports whether g is one of the seven labels.
func (g Grade) Valid() bool {
	_, ok := approximateWeights[g]
	return ok
}

// Index returns the canonical position of g (0 for A++), or -1.
func Index(g Grade) int {
	for i, v := range Grades {
		if v == g {
			return i
		}
	}
	return -1
}

// Parse validates a grade label.
func Parse(s string) (Grade, error) {
	g := Grade(s)
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGrade, s)
	}
	return g, nil
}

// Valid reports whether s is one of the five subject keys.
func (s Subject) Valid() bool {
	_, ok := subjectLabels[s]
	return ok
}

// Label returns the display name of the subject.
func (s Subject) Label() string {
	return subjectLabels[s]
}

// ParseSubject validates a subject key.
func ParseSubject(s string) (Subject, error) {
	sub := Subject(s)
	if !sub.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSubject, s)
	}
	return sub, nil
}

// ValidComposition reports whether level is within [0,6].
func ValidComposition(level int) bool {
	return level >= MinComposition && level <= MaxComposition
}
