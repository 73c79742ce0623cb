// Package pagination tracks the page a session is looking at and maps it to
// record store query parameters.
package pagination

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
)

// Defaults.
const (
	DefaultPageSize = 10
	// WindowSize is the number of consecutive page links shown.
	WindowSize = 5
)

// DefaultPageSizes are the selectable page sizes.
var DefaultPageSizes = []int{10, 20, 50} //nolint:gochecknoglobals // fixed presets

// Controller is the pagination state of one session.
type Controller struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"total"`

	sizes []int
	known bool
}

// New creates a controller on page 1. A pageSize that is not one of sizes is
// added to them.
func New(pageSize int, sizes []int) *Controller {
	if len(sizes) == 0 {
		sizes = DefaultPageSizes
	}
	sizes = slices.Clone(sizes)
	if pageSize <= 0 {
		pageSize = sizes[0]
	}
	if !slices.Contains(sizes, pageSize) {
		sizes = append(sizes, pageSize)
		slices.Sort(sizes)
	}
	return &Controller{CurrentPage: 1, PageSize: pageSize, TotalPages: 1, sizes: sizes}
}

// Update records the totals reported by the record store. totalPages wins
// when positive, otherwise it is derived from total, otherwise it is 1.
func (c *Controller) Update(total, totalPages *int) {
	c.known = true
	if total != nil {
		c.Total = *total
	}
	switch {
	case totalPages != nil && *totalPages > 0:
		c.TotalPages = *totalPages
	case total != nil && *total > 0:
		c.TotalPages = (*total + c.PageSize - 1) / c.PageSize
	default:
		c.TotalPages = 1
	}
}

// GoTo moves to page n. Once totals are known n must not exceed them.
func (c *Controller) GoTo(n int) error {
	if n < 1 || (c.known && n > max(c.TotalPages, 1)) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, c.TotalPages)
	}
	c.CurrentPage = n
	return nil
}

// SetPageSize switches to one of the preset sizes and returns to page 1.
func (c *Controller) SetPageSize(n int) error {
	if !slices.Contains(c.sizes, n) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	if n != c.PageSize {
		c.PageSize = n
		c.CurrentPage = 1
		c.known = false
	}
	return nil
}

// Sizes returns the selectable page sizes.
func (c *Controller) Sizes() []int { return slices.Clone(c.sizes) }

// HasPrev reports whether a previous page exists.
func (c *Controller) HasPrev() bool { return c.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (c *Controller) HasNext() bool { return c.CurrentPage < c.TotalPages }

// Params returns the record store query parameters for the current page.
func (c *Controller) Params() url.Values {
	return url.Values{
		"page":     {strconv.Itoa(c.CurrentPage)},
		"pageSize": {strconv.Itoa(c.PageSize)},
	}
}

// Item is one element of the page bar: a page link or an ellipsis.
type Item struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// Window returns the page bar: up to WindowSize pages centred on the current
// one, with the first and last page always present and gaps elided.
func (c *Controller) Window() []Item {
	total := max(c.TotalPages, 1)
	start := max(1, c.CurrentPage-WindowSize/2)
	end := min(total, start+WindowSize-1)
	if end-start+1 < WindowSize && start > 1 {
		start = max(1, end-WindowSize+1)
	}

	items := make([]Item, 0, WindowSize+4)
	if start > 1 {
		items = append(items, Item{Page: 1})
		if start > 2 {
			items = append(items, Item{Ellipsis: true})
		}
	}
	for p := start; p <= end; p++ {
		items = append(items, Item{Page: p, Current: p == c.CurrentPage})
	}
	if end < total {
		if end < total-1 {
			items = append(items, Item{Ellipsis: true})
		}
		items = append(items, Item{Page: total})
	}
	return items
}

// State is the serialisable view of a controller.
type State struct {
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	TotalPages  int    `json:"totalPages"`
	Total       int    `json:"total"`
	HasPrev     bool   `json:"hasPrev"`
	HasNext     bool   `json:"hasNext"`
	Sizes       []int  `json:"pageSizes"`
	Window      []Item `json:"window"`
}

// Snapshot captures the controller for rendering.
func (c *Controller) Snapshot() State {
	return State{
		CurrentPage: c.CurrentPage,
		PageSize:    c.PageSize,
		TotalPages:  c.TotalPages,
		Total:       c.Total,
		HasPrev:     c.HasPrev(),
		HasNext:     c.HasNext(),
		Sizes:       c.Sizes(),
		Window:      c.Window(),
	}
}
