package stats

import (
	"github.com/shopspring/decimal"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
)

// DefaultTrendYears are the academic year codes plotted on the trend chart.
var DefaultTrendYears = []string{"110", "111", "112", "113", "114"} //nolint:gochecknoglobals // fixed table

// averagePlaces is the rounding applied to averages.
const averagePlaces = 2

// ScoreStats summarises the numeric positive totals of a set of entries.
// HasScores is false when no total qualified; the other figures are then zero.
type ScoreStats struct {
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	HasScores bool    `json:"hasScores"`
}

// GradeDistribution counts how often each grade occurs for one subject.
type GradeDistribution struct {
	Subject    grade.Subject       `json:"subject"`
	Counts     map[grade.Grade]int `json:"counts"`
	MostCommon grade.Grade         `json:"mostCommon,omitempty"`
}

// CompositionDistribution counts entries per composition level.
type CompositionDistribution struct {
	Counts     [grade.MaxComposition + 1]int `json:"counts"`
	MostCommon *int                          `json:"mostCommon,omitempty"`
}

// TrendPoint is one year of the trend series. Average is nil when the school
// has no usable total for that year.
type TrendPoint struct {
	Year    string   `json:"year"`
	Average *float64 `json:"average"`
}

// SchoolComparison is the side-by-side block for one selected school.
type SchoolComparison struct {
	School      string                  `json:"school"`
	Count       int                     `json:"count"`
	Scores      ScoreStats              `json:"scores"`
	Subjects    []GradeDistribution     `json:"subjects"`
	Composition CompositionDistribution `json:"composition"`
	Trend       []TrendPoint            `json:"trend"`
}

// Compare builds one comparison block per school, in the given order. years
// defaults to DefaultTrendYears when empty.
func Compare(entries []model.Entry, schools []string, years []string) []SchoolComparison {
	if len(years) == 0 {
		years = DefaultTrendYears
	}
	bySchool := make(map[string][]model.Entry, len(schools))
	for _, e := range entries {
		bySchool[e.School] = append(bySchool[e.School], e)
	}
	out := make([]SchoolComparison, 0, len(schools))
	for _, school := range schools {
		out = append(out, compareSchool(school, bySchool[school], years))
	}
	return out
}

func compareSchool(school string, entries []model.Entry, years []string) SchoolComparison {
	c := SchoolComparison{
		School:      school,
		Count:       len(entries),
		Scores:      Scores(entries),
		Subjects:    make([]GradeDistribution, 0, len(grade.Subjects)),
		Composition: Compositions(entries),
		Trend:       Trend(entries, years),
	}
	for _, subject := range grade.Subjects {
		c.Subjects = append(c.Subjects, Grades(entries, subject))
	}
	return c
}

// Scores computes average, min and max over totals that parse to a positive
// number. Anything else is excluded, never counted as zero.
func Scores(entries []model.Entry) ScoreStats {
	var (
		st  ScoreStats
		sum = decimal.Zero
	)
	for _, e := range entries {
		v, ok := e.Score()
		if !ok || v <= 0 {
			continue
		}
		if !st.HasScores || v < st.Min {
			st.Min = v
		}
		if !st.HasScores || v > st.Max {
			st.Max = v
		}
		st.HasScores = true
		st.Count++
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	if st.Count > 0 {
		st.Average = sum.Div(decimal.NewFromInt(int64(st.Count))).Round(averagePlaces).InexactFloat64()
	}
	return st
}

// Grades tallies the grades recorded for subject. Ties for the most common
// grade resolve to the better grade.
func Grades(entries []model.Entry, subject grade.Subject) GradeDistribution {
	d := GradeDistribution{Subject: subject, Counts: make(map[grade.Grade]int, len(grade.Grades))}
	for _, g := range grade.Grades {
		d.Counts[g] = 0
	}
	for _, e := range entries {
		if g := e.Scores.Get(subject); g.Valid() {
			d.Counts[g]++
		}
	}
	best := 0
	for _, g := range grade.Grades {
		if d.Counts[g] > best {
			best = d.Counts[g]
			d.MostCommon = g
		}
	}
	return d
}

// Compositions tallies composition levels. Ties resolve to the lowest level.
func Compositions(entries []model.Entry) CompositionDistribution {
	var d CompositionDistribution
	for _, e := range entries {
		if lvl := int(e.Composition); grade.ValidComposition(lvl) {
			d.Counts[lvl]++
		}
	}
	best := 0
	for lvl, n := range d.Counts {
		if n > best {
			best = n
			level := lvl
			d.MostCommon = &level
		}
	}
	return d
}

// Trend returns the average total per year, in the order of years.
func Trend(entries []model.Entry, years []string) []TrendPoint {
	byYear := make(map[string][]model.Entry, len(years))
	for _, e := range entries {
		byYear[e.Year] = append(byYear[e.Year], e)
	}
	out := make([]TrendPoint, 0, len(years))
	for _, y := range years {
		p := TrendPoint{Year: y}
		if st := Scores(byYear[y]); st.HasScores {
			avg := st.Average
			p.Average = &avg
		}
		out = append(out, p)
	}
	return out
}
