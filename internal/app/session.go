package service

import (
	"slices"
	"sync"
	"time"

	"github.com/okian/huikao/internal/domain/favorites"
	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/ordering"
	"github.com/okian/huikao/internal/domain/pagination"
	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/internal/domain/types"
	"github.com/okian/huikao/pkg/metrics"
)

// Session is the board state of one visitor. All fields are guarded by mu.
type Session struct {
	id string

	mu         sync.Mutex
	entries    []model.Entry // fetched page plus local submissions, newest first
	displayed  []model.Entry
	spec       filter.Spec
	sort       ordering.Mode
	pager      *pagination.Controller
	selection  *stats.Selection
	favs       *favorites.Set // nil until first used
	lastSubmit time.Time
	generation uint64
}

// navigation is the part of a session a page load may change.
type navigation struct {
	pager pagination.Controller
	sort  ordering.Mode
	spec  filter.Spec
}

func newSession(id string, pageSize int, pageSizes []int, maxCompare int) *Session {
	return &Session{
		id:        id,
		entries:   []model.Entry{},
		displayed: []model.Entry{},
		spec:      filter.Default(),
		sort:      ordering.Newest,
		pager:     pagination.New(pageSize, pageSizes),
		selection: stats.NewSelection(maxCompare),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// begin starts a fetch and returns its generation. Caller holds mu.
func (s *Session) begin() uint64 {
	s.generation++
	return s.generation
}

// current reports whether gen is still the latest fetch. Caller holds mu.
func (s *Session) current(gen uint64) bool {
	return gen == s.generation
}

// refresh recomputes the displayed entries. Caller holds mu.
func (s *Session) refresh() {
	start := time.Now()
	s.displayed = ordering.Sort(filter.Apply(s.entries, s.spec), s.sort)
	metrics.RecordFilterLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// view captures what the session displays. Caller holds mu.
func (s *Session) view() types.View {
	return types.View{
		Entries:    slices.Clone(s.displayed),
		Groups:     ordering.GroupBySchool(s.displayed),
		Count:      len(s.displayed),
		Total:      len(s.entries),
		Sort:       s.sort,
		Filter:     s.spec,
		Pagination: s.pager.Snapshot(),
	}
}

// snapshot captures the navigation state. Caller holds mu.
func (s *Session) snapshot() navigation {
	return navigation{pager: *s.pager, sort: s.sort, spec: s.spec}
}

// restore puts back a navigation state taken by snapshot. Caller holds mu.
func (s *Session) restore(n navigation) {
	*s.pager = n.pager
	s.sort = n.sort
	s.spec = n.spec
}

// find looks an entry up among the session's entries. Caller holds mu.
func (s *Session) find(id int64) (model.Entry, bool) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.Entry{}, false
}

// sessions is a bounded registry evicting the least recently used session.
type sessions struct {
	mu    sync.Mutex
	max   int
	order []string // most recently used last
	items map[string]*Session
}

func newSessions(maxSessions int) *sessions {
	return &sessions{max: maxSessions, items: make(map[string]*Session)}
}

func (r *sessions) get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if ok {
		r.touch(id)
	}
	return s, ok
}

// add registers s unless a session with its id exists already, in which case
// that one is returned and added is false.
func (r *sessions) add(s *Session) (_ *Session, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.items[s.id]; ok {
		r.touch(s.id)
		return cur, false
	}
	if len(r.items) >= r.max && len(r.order) > 0 {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.items, oldest)
	}
	r.items[s.id] = s
	r.touch(s.id)
	metrics.UpdateActiveSessions(len(r.items))
	return s, true
}

// touch moves id to the most recently used end. Caller holds mu.
func (r *sessions) touch(id string) {
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.order = append(r.order, id)
}

func (r *sessions) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// favorites counts the saved entries across the sessions in memory.
func (r *sessions) favorites() int {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.items))
	for _, s := range r.items {
		all = append(all, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range all {
		s.mu.Lock()
		if s.favs != nil {
			n += s.favs.Len()
		}
		s.mu.Unlock()
	}
	return n
}
