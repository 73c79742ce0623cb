// Package favorites keeps the bookmarked entries of a visitor.
package favorites

import (
	"sync"

	"github.com/okian/huikao/internal/domain/model"
)

// Set is an insertion-ordered collection of entry snapshots keyed by id. It
// does not own the entries; a bookmarked record may later disappear from the
// record store and remain here. Safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	order []int64
	byID  map[int64]model.Entry
}

// New creates a set seeded with entries. Later duplicates of an id are ignored.
func New(entries ...model.Entry) *Set {
	s := &Set{byID: make(map[int64]model.Entry, len(entries))}
	for _, e := range entries {
		s.add(e)
	}
	return s
}

func (s *Set) add(e model.Entry) bool {
	if _, ok := s.byID[e.ID]; ok {
		return false
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	return true
}

// Toggle adds e when absent and removes it otherwise. It reports whether e
// is a favorite afterwards.
func (s *Set) Toggle(e model.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; ok {
		s.remove(e.ID)
		return false
	}
	return s.add(e)
}

// Contains reports whether id is bookmarked.
func (s *Set) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Remove drops id and reports whether it was present.
func (s *Set) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

func (s *Set) remove(id int64) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every favorite.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[int64]model.Entry)
}

// List returns the favorites in the order they were added.
func (s *Set) List() []model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of favorites.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
