package api

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/okian/huikao/internal/domain/export"
)

// handleExport handles GET /export/{format}: the session's displayed entries
// as csv, json or a printable html page.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, s.deps.Displayed(sess), now); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != export.Print {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": export.FileName(format, now),
		}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
