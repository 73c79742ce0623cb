package scoring

import (
	"github.com/okian/huikao/internal/domain/grade"
	"github.com/spf13/cast"
)

// Calculator weights for the what-if tool.
const (
	calculatorSubjectMultiplier     = 3
	calculatorCompositionMultiplier = 2
)

// CalculatorInput holds raw numeric subject scores for the what-if tool.
// It is unrelated to stored grade labels.
type CalculatorInput struct {
	Subjects    map[grade.Subject]int
	Composition int
}

// CalculatorResult is the what-if outcome.
type CalculatorResult struct {
	TotalPoints int `json:"totalPoints"`
	TotalScore  int `json:"totalScore"`
}

// Calculate sums the raw subject scores and derives the weighted total:
// totalScore = totalPoints*3 + composition*2.
func Calculate(in CalculatorInput) CalculatorResult {
	points := 0
	for _, subject := range grade.Subjects {
		points += in.Subjects[subject]
	}
	return CalculatorResult{
		TotalPoints: points,
		TotalScore:  points*calculatorSubjectMultiplier + in.Composition*calculatorCompositionMultiplier,
	}
}

// ParseCalculatorInput reads subject and composition values from loosely
// typed form values. Anything that does not parse as an integer counts as 0.
func ParseCalculatorInput(values map[string]string) CalculatorInput {
	in := CalculatorInput{Subjects: make(map[grade.Subject]int, len(grade.Subjects))}
	for _, subject := range grade.Subjects {
		in.Subjects[subject] = looseInt(values[string(subject)])
	}
	in.Composition = looseInt(values["composition"])
	return in
}

func looseInt(s string) int {
	if n, err := cast.ToIntE(s); err == nil {
		return n
	}
	if f, err := cast.ToFloat64E(s); err == nil {
		return int(f)
	}
	return 0
}
