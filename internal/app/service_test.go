package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/huikao/internal/adapters/localstore"
	"github.com/okian/huikao/internal/adapters/recordstore"
	service "github.com/okian/huikao/internal/app"
	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/ordering"
	"github.com/okian/huikao/internal/domain/pagination"
	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/internal/domain/types"
	"github.com/okian/huikao/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// fakeStore serves fixed pages. A page listed in hold blocks until its
// channel is closed.
type fakeStore struct {
	mu      sync.Mutex
	pages   map[int][]model.Entry
	total   int
	hold    map[int]chan struct{}
	waiting chan int
	fail    error
	added   []model.Entry
	addedCh chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pages:   map[int][]model.Entry{},
		hold:    map[int]chan struct{}{},
		waiting: make(chan int, 4),
		addedCh: make(chan struct{}, 16),
	}
}

func (f *fakeStore) GetEntries(ctx context.Context, page, _ int) (recordstore.Page, error) {
	f.mu.Lock()
	wait := f.hold[page]
	f.mu.Unlock()
	if wait != nil {
		f.waiting <- page
		select {
		case <-wait:
		case <-ctx.Done():
			return recordstore.Page{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return recordstore.Page{}, f.fail
	}
	total := f.total
	return recordstore.Page{Entries: f.pages[page], Total: &total}, nil
}

func (f *fakeStore) AddEntry(_ context.Context, e model.Entry) error {
	f.mu.Lock()
	f.added = append(f.added, e)
	f.mu.Unlock()
	f.addedCh <- struct{}{}
	return nil
}

func (f *fakeStore) FetchAll(_ context.Context, _ int) ([]model.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Entry
	for p := 1; p <= len(f.pages); p++ {
		all = append(all, f.pages[p]...)
	}
	return all, nil
}

func scores(g grade.Grade) model.Scores {
	var s model.Scores
	for _, subj := range grade.Subjects {
		s.Set(subj, g)
	}
	return s
}

func entry(id int64, school, total string) model.Entry {
	return model.Entry{
		ID: id, Year: "113", School: school, Region: "taipei",
		Department: model.DefaultDepartment, Scores: scores(grade.A), Total: total,
	}
}

func startService(store service.RecordStore, opts ...service.Option) *service.Service {
	svc := service.New(store, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestSessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was not started", t, func() {
		svc := service.New(newFakeStore())
		_, _, err := svc.Session(ctx, "")
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})

	Convey("Given a started service with room for two sessions", t, func() {
		svc := startService(newFakeStore(), service.WithMaxSessions(2))
		defer svc.Stop()

		a, created, err := svc.Session(ctx, "")
		So(err, ShouldBeNil)
		So(created, ShouldBeTrue)

		Convey("Then a known id returns the same session", func() {
			again, created, _ := svc.Session(ctx, a.ID())
			So(created, ShouldBeFalse)
			So(again, ShouldEqual, a)
		})

		Convey("Then a malformed id gets a fresh session", func() {
			other, created, _ := svc.Session(ctx, "nope")
			So(created, ShouldBeTrue)
			So(other.ID(), ShouldNotEqual, "nope")
		})

		Convey("Then a well-formed id not in memory keeps its id", func() {
			const id = "6f1c2a9e-3b7d-4c55-9a0e-2d4b8f7e1c33"
			other, created, _ := svc.Session(ctx, id)
			So(created, ShouldBeTrue)
			So(other.ID(), ShouldEqual, id)

			again, created, _ := svc.Session(ctx, id)
			So(created, ShouldBeFalse)
			So(again, ShouldEqual, other)
		})

		Convey("Then a new session shows an empty list rather than null", func() {
			b, err := json.Marshal(svc.View(a))
			So(err, ShouldBeNil)
			var m map[string]any
			So(json.Unmarshal(b, &m), ShouldBeNil)
			So(m["entries"], ShouldResemble, []any{})
			So(m["groups"], ShouldResemble, []any{})
		})

		Convey("When two more sessions are created", func() {
			b, _, _ := svc.Session(ctx, "")
			_, _, _ = svc.Session(ctx, b.ID())
			_, _, _ = svc.Session(ctx, "")

			Convey("Then the least recently used one is evicted", func() {
				_, created, _ := svc.Session(ctx, a.ID())
				So(created, ShouldBeTrue)
			})
		})
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with two pages", t, func() {
		store := newFakeStore()
		store.pages[1] = []model.Entry{entry(1, "X", "20"), entry(2, "Y", "30"), entry(3, "X", "25")}
		store.pages[2] = []model.Entry{entry(4, "Z", "10")}
		store.total = 4
		svc := startService(store, service.WithPageSize(3, []int{3, 10}))
		defer svc.Stop()
		sess, _, _ := svc.Session(ctx, "")

		Convey("When the first page is loaded", func() {
			view, err := svc.Load(ctx, sess, service.LoadRequest{})
			So(err, ShouldBeNil)

			Convey("Then the view carries entries, groups and pagination", func() {
				So(view.Count, ShouldEqual, 3)
				So(view.Total, ShouldEqual, 3)
				So(view.Groups[0].School, ShouldEqual, "X")
				So(view.Groups[0].Count, ShouldEqual, 2)
				So(view.Pagination.TotalPages, ShouldEqual, 2)
				So(view.Pagination.HasNext, ShouldBeTrue)
			})

			Convey("And sorting by highest reorders the displayed entries", func() {
				v := svc.SetSort(sess, ordering.Highest)
				So(v.Entries[0].ID, ShouldEqual, int64(2))
			})

			Convey("And a filter narrows the view without dropping loaded entries", func() {
				spec := filter.Default()
				spec.Keyword = "Y"
				v := svc.SetFilter(sess, spec)
				So(v.Count, ShouldEqual, 1)
				So(v.Total, ShouldEqual, 3)

				reset := svc.ResetFilters(sess)
				So(reset.Count, ShouldEqual, 3)
			})

			Convey("And a page past the end is refused", func() {
				_, err := svc.Load(ctx, sess, service.LoadRequest{Page: 3})
				So(errors.Is(err, pagination.ErrPageOutOfRange), ShouldBeTrue)
			})

			Convey("And the second page replaces the entries", func() {
				v, err := svc.Load(ctx, sess, service.LoadRequest{Page: 2})
				So(err, ShouldBeNil)
				So(v.Count, ShouldEqual, 1)
				So(v.Pagination.CurrentPage, ShouldEqual, 2)
			})
		})

		Convey("When a fetch fails", func() {
			_, err := svc.Load(ctx, sess, service.LoadRequest{})
			So(err, ShouldBeNil)
			store.mu.Lock()
			store.fail = &recordstore.APIError{Message: "quota"}
			store.mu.Unlock()

			_, err = svc.Load(ctx, sess, service.LoadRequest{})

			Convey("Then the error is upstream and the view is untouched", func() {
				So(service.IsUpstream(err), ShouldBeTrue)
				So(svc.View(sess).Count, ShouldEqual, 3)
			})

			Convey("Then a failed move to another page leaves the session where it was", func() {
				spec := filter.Default()
				spec.Keyword = "X"
				highest := ordering.Highest
				_, err := svc.Load(ctx, sess, service.LoadRequest{Page: 2, PageSize: 10, Sort: &highest, Filter: &spec})
				So(service.IsUpstream(err), ShouldBeTrue)

				v := svc.View(sess)
				So(v.Pagination.CurrentPage, ShouldEqual, 1)
				So(v.Pagination.PageSize, ShouldEqual, 3)
				So(v.Sort, ShouldEqual, ordering.Newest)
				So(v.Filter.Keyword, ShouldEqual, "")
				So(v.Count, ShouldEqual, 3)
			})
		})

		Convey("When a request names a page size that is not offered", func() {
			_, err := svc.Load(ctx, sess, service.LoadRequest{})
			So(err, ShouldBeNil)
			highest := ordering.Highest
			_, err = svc.Load(ctx, sess, service.LoadRequest{PageSize: 7, Sort: &highest})

			Convey("Then nothing about the session changes", func() {
				So(errors.Is(err, pagination.ErrInvalidPageSize), ShouldBeTrue)
				v := svc.View(sess)
				So(v.Pagination.PageSize, ShouldEqual, 3)
				So(v.Sort, ShouldEqual, ordering.Newest)
			})
		})

		Convey("When an older fetch resolves after a newer one", func() {
			release := make(chan struct{})
			store.mu.Lock()
			store.hold[1] = release
			store.mu.Unlock()

			var slowErr error
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, slowErr = svc.Load(ctx, sess, service.LoadRequest{Page: 1})
			}()
			So(<-store.waiting, ShouldEqual, 1)

			fast, err := svc.Load(ctx, sess, service.LoadRequest{Page: 2})
			So(err, ShouldBeNil)
			close(release)
			wg.Wait()

			Convey("Then the stale response is discarded", func() {
				So(errors.Is(slowErr, service.ErrSuperseded), ShouldBeTrue)
				So(fast.Entries[0].ID, ShouldEqual, int64(4))
				So(svc.View(sess).Entries[0].ID, ShouldEqual, int64(4))
				So(svc.View(sess).Pagination.CurrentPage, ShouldEqual, 2)
			})
		})
	})
}

func TestStatsAndCompare(t *testing.T) {
	ctx := context.Background()

	Convey("Given a session with a loaded page", t, func() {
		store := newFakeStore()
		store.pages[1] = []model.Entry{entry(1, "X", "20"), entry(2, "Y", "30"), entry(3, "X", "25")}
		store.pages[2] = []model.Entry{entry(4, "Y", "10"), entry(5, "Y", "12")}
		store.total = 5
		svc := startService(store, service.WithMaxCompare(2))
		defer svc.Stop()
		sess, _, _ := svc.Session(ctx, "")
		_, err := svc.Load(ctx, sess, service.LoadRequest{})
		So(err, ShouldBeNil)

		Convey("Then page statistics cover the loaded entries", func() {
			st, err := svc.Stats(ctx, sess, types.ScopePage)
			So(err, ShouldBeNil)
			So(st.TotalEntries, ShouldEqual, 3)
			So(st.Popular.School, ShouldEqual, "X")
		})

		Convey("Then statistics over everything use the whole store", func() {
			st, err := svc.Stats(ctx, sess, types.ScopeAll)
			So(err, ShouldBeNil)
			So(st.TotalEntries, ShouldEqual, 5)
			So(st.Popular.School, ShouldEqual, "Y")
		})

		Convey("Then an unknown scope is refused", func() {
			_, err := svc.Stats(ctx, sess, "week")
			So(errors.Is(err, service.ErrInvalidScope), ShouldBeTrue)
		})

		Convey("When schools are selected for comparison", func() {
			So(svc.AddCompare(sess, "X"), ShouldBeNil)
			So(svc.AddCompare(sess, "Y"), ShouldBeNil)

			Convey("Then the selection is bounded", func() {
				So(errors.Is(svc.AddCompare(sess, "Z"), stats.ErrSelectionFull), ShouldBeTrue)
			})

			Convey("Then the comparison has a result per school", func() {
				cmp, err := svc.Comparison(ctx, sess, types.ScopePage)
				So(err, ShouldBeNil)
				So(cmp.Limit, ShouldEqual, 2)
				So(cmp.Schools, ShouldResemble, []string{"X", "Y"})
				So(cmp.Results[0].Count, ShouldEqual, 2)
				So(cmp.Results[0].Scores.Average, ShouldEqual, 22.5)
			})

			Convey("Then removing and clearing shrink it", func() {
				So(svc.RemoveCompare(sess, "X"), ShouldBeNil)
				cmp, _ := svc.Comparison(ctx, sess, types.ScopePage)
				So(cmp.Schools, ShouldResemble, []string{"Y"})
				svc.ClearCompare(sess)
				cmp, _ = svc.Comparison(ctx, sess, types.ScopePage)
				So(cmp.Schools, ShouldBeEmpty)
			})
		})
	})
}

func TestFavoritesAndPreferences(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service persisting to a file", t, func() {
		path := filepath.Join(t.TempDir(), "huikao.json")
		local, err := localstore.Open(path)
		So(err, ShouldBeNil)

		store := newFakeStore()
		store.pages[1] = []model.Entry{entry(1, "X", "20"), entry(2, "Y", "30")}
		svc := startService(store, service.WithLocalStore(local))
		defer svc.Stop()
		sess, _, _ := svc.Session(ctx, "")
		_, err = svc.Load(ctx, sess, service.LoadRequest{})
		So(err, ShouldBeNil)

		Convey("When a loaded entry is toggled", func() {
			added, err := svc.ToggleFavorite(ctx, sess, 2)
			So(err, ShouldBeNil)
			So(added, ShouldBeTrue)

			Convey("Then it is listed and persisted for that visitor", func() {
				favs, err := svc.Favorites(ctx, sess)
				So(err, ShouldBeNil)
				So(len(favs), ShouldEqual, 1)
				reopened, _ := localstore.Open(path)
				saved, _ := reopened.Favorites(ctx, sess.ID())
				So(saved[0].ID, ShouldEqual, int64(2))
				So(svc.GetStats()["favorites"], ShouldEqual, 1)
			})

			Convey("Then another visitor does not see it", func() {
				other, _, _ := svc.Session(ctx, "")
				favs, err := svc.Favorites(ctx, other)
				So(err, ShouldBeNil)
				So(favs, ShouldBeEmpty)
				So(svc.ClearFavorites(ctx, other), ShouldBeNil)

				mine, _ := svc.Favorites(ctx, sess)
				So(len(mine), ShouldEqual, 1)
			})

			Convey("Then the visitor finds it again after a restart", func() {
				svc.Stop()
				reopened, err := localstore.Open(path)
				So(err, ShouldBeNil)
				restarted := startService(store, service.WithLocalStore(reopened))
				defer restarted.Stop()

				resumed, created, err := restarted.Session(ctx, sess.ID())
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				favs, err := restarted.Favorites(ctx, resumed)
				So(err, ShouldBeNil)
				So(len(favs), ShouldEqual, 1)
				So(favs[0].ID, ShouldEqual, int64(2))
			})

			Convey("Then toggling again removes it", func() {
				added, err := svc.ToggleFavorite(ctx, sess, 2)
				So(err, ShouldBeNil)
				So(added, ShouldBeFalse)
				favs, _ := svc.Favorites(ctx, sess)
				So(favs, ShouldBeEmpty)
			})

			Convey("Then clearing forgets everything", func() {
				So(svc.ClearFavorites(ctx, sess), ShouldBeNil)
				favs, _ := svc.Favorites(ctx, sess)
				So(favs, ShouldBeEmpty)
			})
		})

		Convey("When an unknown entry is toggled", func() {
			_, err := svc.ToggleFavorite(ctx, sess, 99)
			So(errors.Is(err, service.ErrEntryNotFound), ShouldBeTrue)
			So(errors.Is(svc.RemoveFavorite(ctx, sess, 99), service.ErrEntryNotFound), ShouldBeTrue)
		})

		Convey("When dark mode is switched on", func() {
			So(svc.SetPreferences(ctx, sess, types.Preferences{DarkMode: true}), ShouldBeNil)

			Convey("Then the visitor keeps it", func() {
				p, err := svc.Preferences(ctx, sess)
				So(err, ShouldBeNil)
				So(p.DarkMode, ShouldBeTrue)
			})

			Convey("Then another visitor still has the default", func() {
				other, _, _ := svc.Session(ctx, "")
				p, err := svc.Preferences(ctx, other)
				So(err, ShouldBeNil)
				So(p.DarkMode, ShouldBeFalse)
			})
		})
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a controllable clock", t, func() {
		now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		var clockMu sync.Mutex
		clock := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			clockMu.Lock()
			now = now.Add(d)
			clockMu.Unlock()
		}

		store := newFakeStore()
		svc := startService(store, service.WithClock(clock), service.WithSubmitCooldown(time.Second))
		defer svc.Stop()
		sess, _, _ := svc.Session(ctx, "")

		form := model.Entry{Year: "113", School: "X", Region: "taipei", Scores: scores(grade.APlusPlus), Composition: 6}

		Convey("When the verification token is missing", func() {
			_, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form})
			So(errors.Is(err, service.ErrVerificationRequired), ShouldBeTrue)
		})

		Convey("When a required field is missing", func() {
			bad := form
			bad.School = ""
			_, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: bad, CaptchaResponse: "ok"})
			So(service.IsValidation(err), ShouldBeTrue)

			Convey("Then the corrected entry is not held back by the cooldown", func() {
				res, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "ok"})
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, "accepted")
			})
		})

		Convey("When two visitors submit within the same millisecond", func() {
			other, _, _ := svc.Session(ctx, "")
			a := form
			a.School = "A"
			b := form
			b.School = "B"

			ra, errA := svc.Submit(ctx, sess, service.SubmitRequest{Entry: a, CaptchaResponse: "token-a"})
			rb, errB := svc.Submit(ctx, other, service.SubmitRequest{Entry: b, CaptchaResponse: "token-b"})

			Convey("Then both are accepted under different ids", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(ra.Status, ShouldEqual, "accepted")
				So(rb.Status, ShouldEqual, "accepted")
				So(rb.Entry.ID, ShouldBeGreaterThan, ra.Entry.ID)
			})
		})

		Convey("When two visitors send identical forms", func() {
			other, _, _ := svc.Session(ctx, "")
			ra, errA := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "token-a"})
			rb, errB := svc.Submit(ctx, other, service.SubmitRequest{Entry: form, CaptchaResponse: "token-b"})

			Convey("Then neither is mistaken for a retry", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(rb.Duplicate, ShouldBeFalse)
				So(rb.Entry.ID, ShouldNotEqual, ra.Entry.ID)
			})
		})

		Convey("When an entry arrives carrying an id of its own", func() {
			carried := form
			carried.ID = 42
			res, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: carried, CaptchaResponse: "ok"})
			So(err, ShouldBeNil)
			So(res.Entry.ID, ShouldEqual, now.UnixMilli())
		})

		Convey("When one session submits concurrently", func() {
			const n = 8
			var wg sync.WaitGroup
			results := make([]error, n)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					e := form
					e.Composition = model.Composition(i % 7)
					_, results[i] = svc.Submit(ctx, sess, service.SubmitRequest{Entry: e, CaptchaResponse: "ok"})
				}()
			}
			wg.Wait()

			Convey("Then exactly one gets past the cooldown", func() {
				accepted, cooled := 0, 0
				for _, err := range results {
					switch {
					case err == nil:
						accepted++
					case errors.Is(err, service.ErrCooldown):
						cooled++
					}
				}
				So(accepted, ShouldEqual, 1)
				So(cooled, ShouldEqual, n-1)
			})
		})

		Convey("When a valid entry is submitted", func() {
			res, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "ok"})
			So(err, ShouldBeNil)

			Convey("Then it is stamped and completed", func() {
				So(res.Status, ShouldEqual, "accepted")
				So(res.Entry.ID, ShouldEqual, now.UnixMilli())
				So(res.Entry.Department, ShouldEqual, model.DefaultDepartment)
				So(res.Entry.Total, ShouldEqual, "33")
				So(res.Entry.TotalPoints, ShouldEqual, "35")
			})

			Convey("Then it heads the session's entries", func() {
				So(svc.View(sess).Entries[0].ID, ShouldEqual, res.Entry.ID)
			})

			Convey("Then a worker forwards it to the record store", func() {
				select {
				case <-store.addedCh:
				case <-time.After(2 * time.Second):
				}
				store.mu.Lock()
				defer store.mu.Unlock()
				So(len(store.added), ShouldEqual, 1)
				So(store.added[0].School, ShouldEqual, "X")
			})

			Convey("Then a second submission inside the cooldown is refused", func() {
				_, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "ok"})
				So(errors.Is(err, service.ErrCooldown), ShouldBeTrue)
			})

			Convey("Then retrying the same request after the cooldown is a duplicate", func() {
				advance(2 * time.Second)
				dup, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "ok"})
				So(err, ShouldBeNil)
				So(dup.Duplicate, ShouldBeTrue)
				So(dup.Status, ShouldEqual, "duplicate")
			})

			Convey("Then a retry under the same idempotency key is a duplicate", func() {
				advance(2 * time.Second)
				first, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "c1", IdempotencyKey: "k1"})
				So(err, ShouldBeNil)
				So(first.Duplicate, ShouldBeFalse)
				advance(2 * time.Second)
				dup, err := svc.Submit(ctx, sess, service.SubmitRequest{Entry: form, CaptchaResponse: "c2", IdempotencyKey: "k1"})
				So(err, ShouldBeNil)
				So(dup.Duplicate, ShouldBeTrue)
			})

			Convey("Then the queue capacity is reported", func() {
				So(svc.GetStats()["queueCapacity"], ShouldEqual, 1000)
			})
		})
	})
}
