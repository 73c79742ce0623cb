package model_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validEntry() model.Entry {
	return model.Entry{
		ID:     1700000000000,
		Year:   "113",
		School: "建國中學",
		Region: "taipei",
		Scores: model.Scores{
			Chinese: grade.APlusPlus,
			English: grade.A,
			Math:    grade.BPlus,
			Science: grade.C,
			Social:  grade.B,
		},
		Composition: 4,
	}
}

func TestEntryDecoding(t *testing.T) {
	convey.Convey("Given sheet rows with loose typing", t, func() {
		convey.Convey("When numeric fields arrive as numbers", func() {
			raw := `{"id":1700000000000,"year":113,"school":"X","region":"taipei",
				"scores":{"chinese":"A","english":"A","math":"A","science":"A","social":"A"},
				"composition":5,"total":33,"totalPoints":25}`
			var e model.Entry
			err := json.Unmarshal([]byte(raw), &e)

			convey.Convey("Then they are normalised to the canonical representation", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.ID, convey.ShouldEqual, int64(1700000000000))
				convey.So(e.Year, convey.ShouldEqual, "113")
				convey.So(e.Composition, convey.ShouldEqual, model.Composition(5))
				convey.So(e.Total, convey.ShouldEqual, "33")
				convey.So(e.TotalPoints, convey.ShouldEqual, "25")
			})
		})

		convey.Convey("When numeric fields arrive as strings", func() {
			raw := `{"id":"42","year":"112","school":"X","region":"taipei","composition":"3","total":"20"}`
			var e model.Entry
			err := json.Unmarshal([]byte(raw), &e)

			convey.Convey("Then they decode to the same representation", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.ID, convey.ShouldEqual, int64(42))
				convey.So(e.Composition, convey.ShouldEqual, model.Composition(3))
				convey.So(e.Total, convey.ShouldEqual, "20")
			})
		})

		convey.Convey("When composition is empty", func() {
			var e model.Entry
			err := json.Unmarshal([]byte(`{"composition":""}`), &e)

			convey.Convey("Then it defaults to level 0", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.Composition, convey.ShouldEqual, model.Composition(0))
			})
		})

		convey.Convey("When composition is not numeric", func() {
			var e model.Entry
			err := json.Unmarshal([]byte(`{"composition":"six"}`), &e)

			convey.Convey("Then decoding fails with a validation error", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
			})
		})
	})
}

func TestEntryEncoding(t *testing.T) {
	convey.Convey("Given a valid entry", t, func() {
		e := validEntry()

		convey.Convey("When encoding to JSON", func() {
			b, err := json.Marshal(e)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then composition is written as a string", func() {
				convey.So(string(b), convey.ShouldContainSubstring, `"composition":"4"`)
			})

			convey.Convey("And decoding it back yields the same entry", func() {
				var back model.Entry
				convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, e)
			})
		})
	})
}

func TestEntryValidate(t *testing.T) {
	convey.Convey("Given entry validation", t, func() {
		convey.Convey("When the entry is complete", func() {
			convey.So(validEntry().Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a subject grade is missing", func() {
			e := validEntry()
			e.Scores.Math = ""
			err := e.Validate()

			convey.Convey("Then the failing field is reported", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				var fe *model.FieldError
				convey.So(errors.As(err, &fe), convey.ShouldBeTrue)
				convey.So(fe.Fields, convey.ShouldContain, "scores.math")
			})
		})

		convey.Convey("When a grade label is unknown", func() {
			e := validEntry()
			e.Scores.English = "D"
			convey.So(errors.Is(e.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When composition is out of range", func() {
			e := validEntry()
			e.Composition = 7
			convey.So(errors.Is(e.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When the school is blank", func() {
			e := validEntry()
			e.School = ""
			var fe *model.FieldError
			convey.So(errors.As(e.Validate(), &fe), convey.ShouldBeTrue)
			convey.So(fe.Fields, convey.ShouldContain, "school")
		})

		convey.Convey("When the region is the wildcard", func() {
			e := validEntry()
			e.Region = model.RegionAll
			convey.So(e.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestEntryDefaults(t *testing.T) {
	convey.Convey("Given an entry without optional fields", t, func() {
		e := model.Entry{}

		convey.Convey("When normalising and stamping", func() {
			now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
			e.Normalize()
			e.Stamp(now, &model.IDSource{})

			convey.Convey("Then defaults are applied", func() {
				convey.So(e.Department, convey.ShouldEqual, model.DefaultDepartment)
				convey.So(e.ID, convey.ShouldEqual, now.UnixMilli())
				convey.So(e.Date, convey.ShouldEqual, "2024-06-01T08:30:00.000Z")
			})

			convey.Convey("And missing totals display as unspecified", func() {
				convey.So(e.DisplayTotal(), convey.ShouldEqual, model.Unspecified)
				convey.So(e.DisplayTotalPoints(), convey.ShouldEqual, model.Unspecified)
			})
		})
	})
}

func TestIDSource(t *testing.T) {
	convey.Convey("Given one id source", t, func() {
		ids := &model.IDSource{}
		now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

		convey.Convey("When entries are created in the same millisecond", func() {
			first := ids.Next(now)
			second := ids.Next(now)

			convey.Convey("Then the ids differ and increase", func() {
				convey.So(first, convey.ShouldEqual, now.UnixMilli())
				convey.So(second, convey.ShouldEqual, now.UnixMilli()+1)
			})
		})

		convey.Convey("When the clock goes backwards", func() {
			first := ids.Next(now)
			second := ids.Next(now.Add(-time.Minute))
			convey.So(second, convey.ShouldBeGreaterThan, first)
		})

		convey.Convey("When stamping an entry that carries an id", func() {
			taken := ids.Next(now)
			e := model.Entry{ID: taken}
			e.Stamp(now, ids)
			convey.So(e.ID, convey.ShouldBeGreaterThan, taken)
		})

		convey.Convey("When many goroutines draw ids", func() {
			var mu sync.Mutex
			seen := map[int64]bool{}
			var wg sync.WaitGroup
			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := ids.Next(now)
					mu.Lock()
					seen[id] = true
					mu.Unlock()
				}()
			}
			wg.Wait()
			convey.So(len(seen), convey.ShouldEqual, 64)
		})
	})
}

func TestParseScore(t *testing.T) {
	convey.Convey("Given best-effort score parsing", t, func() {
		cases := []struct {
			in   string
			want float64
			ok   bool
		}{
			{"25", 25, true},
			{" 30.5 ", 30.5, true},
			{"25分", 25, true},
			{"-3", -3, true},
			{"", 0, false},
			{"abc", 0, false},
			{"未提供", 0, false},
		}
		for _, c := range cases {
			v, ok := model.ParseScore(c.in)
			convey.So(ok, convey.ShouldEqual, c.ok)
			convey.So(v, convey.ShouldEqual, c.want)
		}
	})
}
