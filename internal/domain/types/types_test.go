package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatsView(t *testing.T) {
	Convey("Given a statistics view", t, func() {
		v := types.StatsView{
			Scope: types.ScopeAll,
			Summary: stats.Summary{
				TotalEntries: 3,
				Popular:      &stats.SchoolCount{School: "X", Count: 2},
				TopSchools:   []stats.SchoolCount{{School: "X", Count: 2}, {School: "Y", Count: 1}},
			},
		}

		Convey("When encoded", func() {
			b, err := json.Marshal(v)
			So(err, ShouldBeNil)

			Convey("Then the summary fields are inlined", func() {
				var m map[string]any
				So(json.Unmarshal(b, &m), ShouldBeNil)
				So(m["scope"], ShouldEqual, "all")
				So(m["totalEntries"], ShouldEqual, 3.0)
				So(m["popular"], ShouldNotBeNil)
			})
		})
	})
}

func TestPreferences(t *testing.T) {
	Convey("Given preferences", t, func() {
		b, err := json.Marshal(types.Preferences{DarkMode: true})
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `{"darkMode":true}`)
	})
}
