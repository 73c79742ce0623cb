// Package types contains shapes shared between the application service and
// its adapters.
package types

import (
	"time"

	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/ordering"
	"github.com/okian/huikao/internal/domain/pagination"
	"github.com/okian/huikao/internal/domain/stats"
)

// View is what a session currently displays.
type View struct {
	Entries    []model.Entry    `json:"entries"`
	Groups     []ordering.Group `json:"groups"`
	Count      int              `json:"count"`
	Total      int              `json:"total"`
	Sort       ordering.Mode    `json:"sort"`
	Filter     filter.Spec      `json:"filter"`
	Pagination pagination.State `json:"pagination"`
}

// Submission is a validated entry waiting to be written to the record store.
type Submission struct {
	RequestID  string      `json:"requestId"`
	Entry      model.Entry `json:"entry"`
	ReceivedAt time.Time   `json:"receivedAt"`
}

// Scope selects the entry set statistics are computed over.
type Scope string

// Statistic scopes.
const (
	ScopePage Scope = "page"
	ScopeAll  Scope = "all"
)

// StatsView is the statistics block for one scope.
type StatsView struct {
	Scope Scope `json:"scope"`
	stats.Summary
}

// Comparison is the comparison selection with its figures.
type Comparison struct {
	Schools []string                 `json:"schools"`
	Limit   int                      `json:"limit"`
	Results []stats.SchoolComparison `json:"results"`
}

// Preferences are the persisted display settings.
type Preferences struct {
	DarkMode bool `json:"darkMode"`
}
