// Package scoring derives the aggregate totals of an admission record from
// its subject grades and essay level.
package scoring

import (
	"fmt"
	"strconv"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
)

// weightFunc looks up the contribution of one grade under a scheme.
type weightFunc func(grade.Grade) (int, bool)

// ApproximateScore sums the approximate-score weights of the five subjects
// plus the composition weight. A missing or unknown grade is rejected with
// grade.ErrUnknownGrade naming the subject.
func ApproximateScore(scores model.Scores, composition model.Composition) (int, error) {
	total, err := sumSubjects(scores, grade.ApproximateWeight)
	if err != nil {
		return 0, err
	}
	cw, ok := grade.CompositionWeight(int(composition))
	if !ok {
		return 0, fmt.Errorf("composition level %d: %w", composition, model.ErrValidation)
	}
	return total + cw, nil
}

// TotalPoints sums the credit-point weights of the five subjects. The essay
// level does not contribute.
func TotalPoints(scores model.Scores) (int, error) {
	return sumSubjects(scores, grade.CreditWeight)
}

func sumSubjects(scores model.Scores, weight weightFunc) (int, error) {
	total := 0
	for _, subject := range grade.Subjects {
		g := scores.Get(subject)
		w, ok := weight(g)
		if !ok {
			return 0, fmt.Errorf("%s=%q: %w", subject, g, grade.ErrUnknownGrade)
		}
		total += w
	}
	return total, nil
}

// Fill computes Total and TotalPoints when the record omits them. Values
// already supplied are kept as-is. On a computation guard failure the fields
// stay empty and render as unspecified.
func Fill(e *model.Entry) error {
	if e.Total == "" {
		v, err := ApproximateScore(e.Scores, e.Composition)
		if err != nil {
			return err
		}
		e.Total = strconv.Itoa(v)
	}
	if e.TotalPoints == "" {
		v, err := TotalPoints(e.Scores)
		if err != nil {
			return err
		}
		e.TotalPoints = strconv.Itoa(v)
	}
	return nil
}
