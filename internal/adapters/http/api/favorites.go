package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/types"
)

type favoritesResponse struct {
	Favorites []model.Entry `json:"favorites"`
	Count     int           `json:"count"`
}

type toggleResponse struct {
	ID       int64 `json:"id"`
	Favorite bool  `json:"favorite"`
}

// writeFavorites responds with the favorites of sess.
func (s *Server) writeFavorites(w http.ResponseWriter, r *http.Request, op string, sess *Session) {
	list, err := s.deps.Favorites(r.Context(), sess)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if list == nil {
		list = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, favoritesResponse{Favorites: list, Count: len(list)})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrBadRequest, raw)
	}
	return id, nil
}

// handleGetFavorites handles GET /favorites.
func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeFavorites(w, r, "api.favorites", sess)
}

// handleToggleFavorite handles POST /favorites/{id}.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	const op = "api.favorite_toggle"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	added, err := s.deps.ToggleFavorite(r.Context(), sess, id)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Favorite: added})
}

// handleRemoveFavorite handles DELETE /favorites/{id}.
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	const op = "api.favorite_remove"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if err := s.deps.RemoveFavorite(r.Context(), sess, id); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	s.writeFavorites(w, r, op, sess)
}

// handleClearFavorites handles DELETE /favorites.
func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	const op = "api.favorite_clear"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.deps.ClearFavorites(r.Context(), sess); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	s.writeFavorites(w, r, op, sess)
}

// handleGetPreferences handles GET /preferences.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p, err := s.deps.Preferences(r.Context(), sess)
	if err != nil {
		s.fail(w, r, Wrap("api.preferences", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPreferences handles PUT /preferences.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.preferences_put"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p types.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := s.deps.SetPreferences(r.Context(), sess, p); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
