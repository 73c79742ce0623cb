package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/spf13/cast"
)

// Query parameter names understood by FromQuery.
const (
	ParamKeyword     = "q"
	ParamRegion      = "region"
	ParamYear        = "year"
	ParamScoreMin    = "scoreMin"
	ParamScoreMax    = "scoreMax"
	ParamComposition = "composition"
)

// HasParams reports whether v carries any filter parameter.
func HasParams(v url.Values) bool {
	for _, k := range []string{ParamKeyword, ParamRegion, ParamYear, ParamScoreMin, ParamScoreMax, ParamComposition} {
		if _, ok := v[k]; ok {
			return true
		}
	}
	for _, s := range grade.Subjects {
		if _, ok := v[string(s)]; ok {
			return true
		}
	}
	return false
}

// FromQuery builds a Spec from URL query values. Absent or blank values
// leave the matching constraint unset.
func FromQuery(v url.Values) (Spec, error) {
	s := Default()
	s.Keyword = strings.TrimSpace(v.Get(ParamKeyword))
	if r := strings.TrimSpace(v.Get(ParamRegion)); r != "" {
		s.Region = r
	}
	if y := strings.TrimSpace(v.Get(ParamYear)); y != "" {
		s.Year = &y
	}

	lo, err := optionalFloat(v.Get(ParamScoreMin))
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", ParamScoreMin, err)
	}
	hi, err := optionalFloat(v.Get(ParamScoreMax))
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", ParamScoreMax, err)
	}
	s.ScoreMin, s.ScoreMax = lo, hi

	for _, subject := range grade.Subjects {
		raw := strings.TrimSpace(v.Get(string(subject)))
		if raw == "" {
			continue
		}
		g, err := grade.Parse(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("%s: %w", subject, err)
		}
		s.Subjects[subject] = g
	}

	if c := strings.TrimSpace(v.Get(ParamComposition)); c != "" {
		level, err := model.ParseComposition(c)
		if err != nil {
			return Spec{}, err
		}
		if !grade.ValidComposition(int(level)) {
			return Spec{}, fmt.Errorf("composition %d: %w", level, ErrInvalidSpec)
		}
		s.Composition = &level
	}
	return s, nil
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", raw, ErrInvalidSpec)
	}
	return &f, nil
}
