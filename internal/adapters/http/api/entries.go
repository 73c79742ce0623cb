package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	service "github.com/okian/huikao/internal/app"
	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/ordering"
)

const maxSubmissionBytes = 64 << 10

// loadRequest reads page, pageSize, sort and filter parameters. Absent
// parameters keep the session's current setting.
func loadRequest(q url.Values) (service.LoadRequest, error) {
	var req service.LoadRequest
	var err error
	if req.Page, err = optionalInt(q, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = optionalInt(q, "pageSize"); err != nil {
		return req, err
	}
	if q.Has("sort") {
		mode, err := ordering.ParseMode(q.Get("sort"))
		if err != nil {
			return req, err
		}
		req.Sort = &mode
	}
	if filter.HasParams(q) {
		spec, err := filter.FromQuery(q)
		if err != nil {
			return req, err
		}
		req.Filter = &spec
	}
	return req, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadRequest, key, raw)
	}
	return n, nil
}

// handleGetEntries handles GET /entries.
func (s *Server) handleGetEntries(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_entries"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, err := loadRequest(r.URL.Query())
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := s.deps.Load(r.Context(), sess, req)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePostEntry handles POST /entries.
func (s *Server) handlePostEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_entry"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes)).Decode(&req); err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	res, err := s.deps.Submit(r.Context(), sess, req)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// handleResetFilters handles POST /filters/reset.
func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.ResetFilters(sess))
}
