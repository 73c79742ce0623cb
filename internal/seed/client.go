package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/types"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// ErrUnexpectedStatus marks a response outside the documented statuses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the score board API. It keeps no cookies, so every
// submission runs in a fresh board session and no cooldown applies.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Submit posts one entry and reports whether it was accepted, recognised as a
// duplicate, or refused.
func (c *Client) Submit(ctx context.Context, e model.Entry) (string, error) {
	body, err := json.Marshal(map[string]any{
		"entry":           e,
		"captchaResponse": "seed-" + uuid.NewString(),
	})
	if err != nil {
		return outcomeFailed, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entries", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted, nil
	case http.StatusOK:
		return outcomeDuplicate, nil
	default:
		return outcomeFailed, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}

// Stats fetches the statistics over every stored entry.
func (c *Client) Stats(ctx context.Context) (types.StatsView, error) {
	var view types.StatsView
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?scope=all", nil)
	if err != nil {
		return view, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return view, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return view, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return view, fmt.Errorf("decode stats: %w", err)
	}
	return view, nil
}
