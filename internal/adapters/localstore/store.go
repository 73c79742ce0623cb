// Package localstore persists the favorites and display preference of each
// visitor.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/okian/huikao/internal/domain/model"
)

// Store is the persisted key-value state of each visitor.
type Store interface {
	Favorites(ctx context.Context, visitor string) ([]model.Entry, error)
	SaveFavorites(ctx context.Context, visitor string, entries []model.Entry) error
	DarkMode(ctx context.Context, visitor string) (bool, error)
	SetDarkMode(ctx context.Context, visitor string, on bool) error
}

// document is the on-disk layout: one record per visitor id.
type document struct {
	Visitors map[string]record `json:"visitors"`
}

// record mirrors one browser's storage. darkMode is a boolean string.
type record struct {
	Favorites []model.Entry `json:"favorites"`
	DarkMode  string        `json:"darkMode,omitempty"`
}

func (r record) empty() bool {
	return len(r.Favorites) == 0 && r.DarkMode == ""
}

// FileStore keeps the document in a JSON file. An empty path keeps it in
// memory only. Concurrent writers within the process are serialised; across
// processes the last writer wins.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads the document at path, starting empty when the file is missing.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, doc: document{Visitors: map[string]record{}}}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if s.doc.Visitors == nil {
		s.doc.Visitors = map[string]record{}
	}
	return s, nil
}

// Favorites returns the favorites stored for visitor.
func (s *FileStore) Favorites(_ context.Context, visitor string) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.Visitors[visitor].Favorites), nil
}

// SaveFavorites replaces the favorites of visitor.
func (s *FileStore) SaveFavorites(_ context.Context, visitor string, entries []model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.doc.Visitors[visitor]
	r.Favorites = slices.Clone(entries)
	s.put(visitor, r)
	return s.flush()
}

// DarkMode reports the theme preference of visitor.
func (s *FileStore) DarkMode(_ context.Context, visitor string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.doc.Visitors[visitor].DarkMode
	if raw == "" {
		return false, nil
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: darkMode %q", ErrCorrupt, raw)
	}
	return on, nil
}

// SetDarkMode stores the theme preference of visitor.
func (s *FileStore) SetDarkMode(_ context.Context, visitor string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.doc.Visitors[visitor]
	r.DarkMode = strconv.FormatBool(on)
	s.put(visitor, r)
	return s.flush()
}

// put stores r, dropping visitors with nothing left to remember. Caller holds mu.
func (s *FileStore) put(visitor string, r record) {
	if r.empty() {
		delete(s.doc.Visitors, visitor)
		return
	}
	if r.Favorites == nil {
		r.Favorites = []model.Entry{}
	}
	s.doc.Visitors[visitor] = r
}

// flush writes the document through a temporary file and a rename so a
// crash never leaves a half-written file. Caller holds mu.
func (s *FileStore) flush() error {
	if s.path == "" {
		return nil
	}
	b, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, ".huikao-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
