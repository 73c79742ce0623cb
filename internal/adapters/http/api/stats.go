package api

import (
	"net/http"

	"github.com/okian/huikao/internal/domain/types"
)

// handleStats handles GET /stats?scope=page|all.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Stats(r.Context(), sess, types.Scope(r.URL.Query().Get("scope")))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetCompare handles GET /compare?scope=page|all.
func (s *Server) handleGetCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeComparison(w, r, op, sess)
}

// handleAddCompare handles POST /compare/{school}.
func (s *Server) handleAddCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare_add"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.deps.AddCompare(sess, r.PathValue("school")); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	s.writeComparison(w, r, op, sess)
}

// handleRemoveCompare handles DELETE /compare/{school}.
func (s *Server) handleRemoveCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare_remove"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.deps.RemoveCompare(sess, r.PathValue("school")); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	s.writeComparison(w, r, op, sess)
}

// handleClearCompare handles DELETE /compare.
func (s *Server) handleClearCompare(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.deps.ClearCompare(sess)
	s.writeComparison(w, r, "api.compare_clear", sess)
}

func (s *Server) writeComparison(w http.ResponseWriter, r *http.Request, op string, sess *Session) {
	cmp, err := s.deps.Comparison(r.Context(), sess, types.Scope(r.URL.Query().Get("scope")))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
