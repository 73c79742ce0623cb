// Package recordstore talks to the spreadsheet-backed API that owns every
// admission record.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/scoring"
	"github.com/okian/huikao/pkg/logger"
	"github.com/okian/huikao/pkg/metrics"
)

// Query actions understood by the API.
const (
	actionGetEntries = "getEntries"
	actionAddEntry   = "addEntry"

	defaultConcurrency = 4
	maxErrorBody       = 512
)

// Page is one page of entries as returned by the API. Total and TotalPages
// are nil when the API omitted them.
type Page struct {
	Entries    []model.Entry
	Total      *int
	TotalPages *int
	// Rejected counts rows dropped at the boundary.
	Rejected int
}

// Client is the record store API client.
type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	concurrency int
	logger      logger.Logger
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		http:        &http.Client{},
		concurrency: defaultConcurrency,
		logger:      logger.Get().Named("recordstore"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type getEntriesResponse struct {
	Success    bool              `json:"success"`
	Entries    []json.RawMessage `json:"entries"`
	Total      any               `json:"total"`
	TotalPages any               `json:"totalPages"`
	Message    string            `json:"message"`
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordFetchError("network")
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		metrics.RecordFetchError("status")
		c.logger.Warn(logger.WithRequestID(ctx, id), "record store returned an error status",
			logger.Int("status", resp.StatusCode),
			logger.String("body", strings.TrimSpace(string(body))),
		)
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}
	return resp, nil
}

// GetEntries fetches one page. Invalid rows are dropped and counted.
func (c *Client) GetEntries(ctx context.Context, page, pageSize int) (Page, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{
		"action":   {actionGetEntries},
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	var body getEntriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.RecordFetchError("decode")
		return Page{}, fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
	}
	if !body.Success {
		metrics.RecordFetchError("api")
		msg := body.Message
		if msg == "" {
			msg = DefaultFailureMessage
		}
		return Page{}, &APIError{Message: msg}
	}

	out := Page{
		Entries:    make([]model.Entry, 0, len(body.Entries)),
		Total:      optionalInt(body.Total),
		TotalPages: optionalInt(body.TotalPages),
	}
	for i, raw := range body.Entries {
		e, reason, err := admit(raw)
		if err != nil {
			out.Rejected++
			metrics.RecordEntryRejected(reason)
			c.logger.Warn(ctx, "dropping record store row",
				logger.Int("page", page),
				logger.Int("row", i),
				logger.String("reason", reason),
				logger.Error(err),
			)
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	metrics.RecordEntriesFetched("page", len(out.Entries))
	return out, nil
}

// admit turns a raw row into a trusted entry or explains why it cannot be.
func admit(raw json.RawMessage) (model.Entry, string, error) {
	var e model.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return model.Entry{}, "malformed", err
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return model.Entry{}, "invalid", err
	}
	if err := scoring.Fill(&e); err != nil {
		return model.Entry{}, "invalid", err
	}
	return e, "", nil
}

func optionalInt(v any) *int {
	if v == nil {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil
	}
	return &n
}

// AddEntry posts a new entry. The response body is not interpreted; any
// 2xx reply counts as stored.
func (c *Client) AddEntry(ctx context.Context, e model.Entry) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	form := url.Values{
		"action": {actionAddEntry},
		"entry":  {string(payload)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// FetchAll returns every entry of the store, in page order. The first page
// sizes the rest, which are fetched concurrently.
func (c *Client) FetchAll(ctx context.Context, pageSize int) ([]model.Entry, error) {
	first, err := c.GetEntries(ctx, 1, pageSize)
	if err != nil {
		return nil, err
	}
	pages := 1
	switch {
	case first.TotalPages != nil && *first.TotalPages > 0:
		pages = *first.TotalPages
	case first.Total != nil && *first.Total > 0:
		pages = (*first.Total + pageSize - 1) / pageSize
	}
	if pages <= 1 {
		return first.Entries, nil
	}

	results := make([][]model.Entry, pages)
	results[0] = first.Entries
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for p := 2; p <= pages; p++ {
		g.Go(func() error {
			page, err := c.GetEntries(gctx, p, pageSize)
			if err != nil {
				return fmt.Errorf("page %d: %w", p, err)
			}
			results[p-1] = page.Entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Entry
	for _, r := range results {
		all = append(all, r...)
	}
	metrics.RecordEntriesFetched("all", len(all))
	return all, nil
}

// IsUpstream reports whether err came from the record store.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrAPI)
}
