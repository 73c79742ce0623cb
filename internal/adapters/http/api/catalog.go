package api

import (
	"net/http"

	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/scoring"
)

// handleDepartments handles GET /departments.
func (s *Server) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.DepartmentGroups)
}

// handleCalculator handles GET /calculator. Missing or non-numeric inputs
// count as zero.
func (s *Server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	values := make(map[string]string, len(q))
	for k := range q {
		values[k] = q.Get(k)
	}
	writeJSON(w, http.StatusOK, scoring.Calculate(scoring.ParseCalculatorInput(values)))
}
