// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/spf13/cast"
)

// Display and default values shared by every layer.
const (
	DefaultDepartment = "普通班"
	Unspecified       = "未提供"
	RegionAll         = "all"
)

// Entry is one crowdsourced admission record.
type Entry struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	Year        string      `json:"year" validate:"required"`
	School      string      `json:"school" validate:"required"`
	Department  string      `json:"department"`
	Region      string      `json:"region" validate:"required,ne=all"`
	Scores      Scores      `json:"scores"`
	Composition Composition `json:"composition" validate:"min=0,max=6"`
	Total       string      `json:"total"`
	TotalPoints string      `json:"totalPoints"`
	Comment     string      `json:"comment,omitempty"`
}

// Scores maps each subject to its grade label.
type Scores struct {
	Chinese grade.Grade `json:"chinese" validate:"grade"`
	English grade.Grade `json:"english" validate:"grade"`
	Math    grade.Grade `json:"math" validate:"grade"`
	Science grade.Grade `json:"science" validate:"grade"`
	Social  grade.Grade `json:"social" validate:"grade"`
}

// Get returns the grade recorded for subject, or "" if unknown.
func (s Scores) Get(subject grade.Subject) grade.Grade {
	switch subject {
	case grade.Chinese:
		return s.Chinese
	case grade.English:
		return s.English
	case grade.Math:
		return s.Math
	case grade.Science:
		return s.Science
	case grade.Social:
		return s.Social
	default:
		return ""
	}
}

// Set records g for subject. Unknown subjects are ignored.
func (s *Scores) Set(subject grade.Subject, g grade.Grade) {
	switch subject {
	case grade.Chinese:
		s.Chinese = g
	case grade.English:
		s.English = g
	case grade.Math:
		s.Math = g
	case grade.Science:
		s.Science = g
	case grade.Social:
		s.Social = g
	}
}

// Composition is the essay level in [0,6]. It decodes from either a JSON
// number or a numeric string and always encodes as a string, which is the
// shape the remote sheet stores.
type Composition int

// MarshalJSON implements json.Marshaler.
func (c Composition) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(c)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Composition) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	level, err := ParseComposition(raw)
	if err != nil {
		return err
	}
	*c = level
	return nil
}

// String returns the canonical representation used in filters and exports.
func (c Composition) String() string {
	return strconv.Itoa(int(c))
}

// ParseComposition normalises a loosely typed level. Empty and nil mean 0.
func ParseComposition(v any) (Composition, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok && s == "" {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("composition %v: %w", v, ErrValidation)
	}
	return Composition(n), nil
}

// wireEntry tolerates the loose typing of sheet-backed rows.
type wireEntry struct {
	ID          any         `json:"id"`
	Date        any         `json:"date"`
	Year        any         `json:"year"`
	School      string      `json:"school"`
	Department  string      `json:"department"`
	Region      string      `json:"region"`
	Scores      Scores      `json:"scores"`
	Composition Composition `json:"composition"`
	Total       any         `json:"total"`
	TotalPoints any         `json:"totalPoints"`
	Comment     any         `json:"comment"`
}

// UnmarshalJSON accepts numbers where strings are expected and vice versa.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var id int64
	if w.ID != nil {
		n, err := cast.ToInt64E(w.ID)
		if err != nil {
			return fmt.Errorf("id %v: %w", w.ID, ErrValidation)
		}
		id = n
	}
	*e = Entry{
		ID:          id,
		Date:        looseString(w.Date),
		Year:        looseString(w.Year),
		School:      w.School,
		Department:  w.Department,
		Region:      w.Region,
		Scores:      w.Scores,
		Composition: w.Composition,
		Total:       looseString(w.Total),
		TotalPoints: looseString(w.TotalPoints),
		Comment:     looseString(w.Comment),
	}
	return nil
}

func looseString(v any) string {
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

// Normalize applies the defaults a freshly submitted or fetched entry gets.
func (e *Entry) Normalize() {
	if e.Department == "" {
		e.Department = DefaultDepartment
	}
}

// IDSource hands out entry ids. An id is the creation time in milliseconds,
// moved past the last id issued so ids stay unique and strictly increasing
// even when two entries are created in the same millisecond.
type IDSource struct {
	last atomic.Int64
}

// Next returns the id for an entry created at now.
func (s *IDSource) Next(now time.Time) int64 {
	for {
		last := s.last.Load()
		id := max(now.UnixMilli(), last+1)
		if s.last.CompareAndSwap(last, id) {
			return id
		}
	}
}

// Stamp assigns a fresh id from ids and the creation timestamp when absent.
// Any id the entry carried is replaced.
func (e *Entry) Stamp(now time.Time, ids *IDSource) {
	e.ID = ids.Next(now)
	if e.Date == "" {
		e.Date = now.UTC().Format("2006-01-02T15:04:05.000Z")
	}
}

// DisplayDepartment falls back to the general track.
func (e Entry) DisplayDepartment() string {
	if e.Department == "" {
		return DefaultDepartment
	}
	return e.Department
}

// DisplayTotal returns the total or the unspecified marker.
func (e Entry) DisplayTotal() string {
	if e.Total == "" {
		return Unspecified
	}
	return e.Total
}

// DisplayTotalPoints returns the points total or the unspecified marker.
func (e Entry) DisplayTotalPoints() string {
	if e.TotalPoints == "" {
		return Unspecified
	}
	return e.TotalPoints
}

// Score parses Total; see ParseScore.
func (e Entry) Score() (float64, bool) {
	return ParseScore(e.Total)
}
