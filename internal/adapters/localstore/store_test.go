package localstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/huikao/internal/adapters/localstore"
	"github.com/okian/huikao/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store backed by a file", t, func() {
		path := filepath.Join(t.TempDir(), "state", "huikao.json")
		s, err := localstore.Open(path)
		So(err, ShouldBeNil)

		Convey("When nothing was saved", func() {
			favs, err := s.Favorites(ctx, "alice")
			So(err, ShouldBeNil)
			So(favs, ShouldBeEmpty)
			on, err := s.DarkMode(ctx, "alice")
			So(err, ShouldBeNil)
			So(on, ShouldBeFalse)
		})

		Convey("When one visitor saves favorites and the theme", func() {
			entries := []model.Entry{{ID: 1, School: "X", Composition: 4}, {ID: 2, School: "Y"}}
			So(s.SaveFavorites(ctx, "alice", entries), ShouldBeNil)
			So(s.SetDarkMode(ctx, "alice", true), ShouldBeNil)

			Convey("Then the file keeps a browser storage record per visitor", func() {
				b, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				var doc struct {
					Visitors map[string]map[string]any `json:"visitors"`
				}
				So(json.Unmarshal(b, &doc), ShouldBeNil)
				So(doc.Visitors, ShouldContainKey, "alice")
				So(doc.Visitors["alice"]["darkMode"], ShouldEqual, "true")
				So(len(doc.Visitors["alice"]["favorites"].([]any)), ShouldEqual, 2)
			})

			Convey("Then another visitor sees none of it", func() {
				favs, _ := s.Favorites(ctx, "bob")
				So(favs, ShouldBeEmpty)
				on, _ := s.DarkMode(ctx, "bob")
				So(on, ShouldBeFalse)
			})

			Convey("Then a reopened store sees them", func() {
				again, err := localstore.Open(path)
				So(err, ShouldBeNil)
				favs, _ := again.Favorites(ctx, "alice")
				So(len(favs), ShouldEqual, 2)
				So(favs[0].Composition, ShouldEqual, model.Composition(4))
				on, _ := again.DarkMode(ctx, "alice")
				So(on, ShouldBeTrue)
			})

			Convey("Then no temporary files remain", func() {
				files, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(len(files), ShouldEqual, 1)
			})
		})

		Convey("When a visitor forgets everything", func() {
			So(s.SaveFavorites(ctx, "alice", []model.Entry{{ID: 1, School: "X"}}), ShouldBeNil)
			So(s.SaveFavorites(ctx, "alice", nil), ShouldBeNil)

			Convey("Then the visitor is dropped from the file", func() {
				b, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(b), ShouldNotContainSubstring, "alice")
			})
		})
	})

	Convey("Given a store without a path", t, func() {
		s, err := localstore.Open("")
		So(err, ShouldBeNil)
		So(s.SetDarkMode(ctx, "alice", true), ShouldBeNil)
		on, _ := s.DarkMode(ctx, "alice")
		So(on, ShouldBeTrue)
	})

	Convey("Given a corrupt file", t, func() {
		path := filepath.Join(t.TempDir(), "huikao.json")
		So(os.WriteFile(path, []byte("{nope"), 0o600), ShouldBeNil)

		_, err := localstore.Open(path)
		So(errors.Is(err, localstore.ErrCorrupt), ShouldBeTrue)
	})
}
