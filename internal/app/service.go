// Package service owns the board sessions and wires the record store, the
// submission pipeline and the persisted visitor state together for the HTTP
// API.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huikao/internal/adapters/localstore"
	"github.com/okian/huikao/internal/adapters/mq/queue"
	"github.com/okian/huikao/internal/adapters/mq/worker"
	"github.com/okian/huikao/internal/adapters/recordstore"
	"github.com/okian/huikao/internal/domain/dedupe"
	"github.com/okian/huikao/internal/domain/favorites"
	"github.com/okian/huikao/internal/domain/filter"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/ordering"
	"github.com/okian/huikao/internal/domain/pagination"
	"github.com/okian/huikao/internal/domain/scoring"
	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/internal/domain/types"
	"github.com/okian/huikao/pkg/logger"
	"github.com/okian/huikao/pkg/metrics"
)

const (
	defaultWorkerCount   = 4
	defaultQueueSize     = 1000
	defaultCooldown      = time.Second
	defaultMaxSessions   = 1000
	stopTimeout          = 30 * time.Second
	fetchAllPageSize     = 50
	submissionStatusSeen = "duplicate"
)

// RecordStore is the remote entry API.
type RecordStore interface {
	GetEntries(ctx context.Context, page, pageSize int) (recordstore.Page, error)
	AddEntry(ctx context.Context, e model.Entry) error
	FetchAll(ctx context.Context, pageSize int) ([]model.Entry, error)
}

// Service implements the API dependencies for the score board.
type Service struct {
	mu sync.RWMutex

	store    RecordStore
	local    localstore.Store
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	sessions *sessions
	ids      model.IDSource

	workerCount int
	queueSize   int
	dedupeSize  int
	pageSize    int
	pageSizes   []int
	cooldown    time.Duration
	maxSessions int
	maxCompare  int
	trendYears  []string
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		dedupeSize:  dedupe.DefaultMaxSize,
		pageSize:    pagination.DefaultPageSize,
		pageSizes:   pagination.DefaultPageSizes,
		cooldown:    defaultCooldown,
		maxSessions: defaultMaxSessions,
		maxCompare:  stats.MaxSelection,
		trendYears:  stats.DefaultTrendYears,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the persisted favorites and starts the submission workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.local == nil {
		mem, err := localstore.Open("")
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		s.local = mem
	}

	s.sessions = newSessions(s.maxSessions)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store)
	// Workers outlive the caller's context so Stop can drain the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "score board service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the submission queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping score board service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "score board service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Session returns the session named id. A well-formed visitor id that is
// not in memory, after eviction or a restart, gets a new session under the
// same id so its persisted favorites and preferences follow it. Any other id
// gets a fresh one. created reports whether a new session was made.
func (s *Service) Session(ctx context.Context, id string) (sess *Session, created bool, err error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	if id != "" {
		if sess, ok := s.sessions.get(id); ok {
			return sess, false, nil
		}
	}
	if parsed, err := uuid.Parse(id); err == nil {
		id = parsed.String()
	} else {
		id = uuid.NewString()
	}
	sess, created = s.sessions.add(newSession(id, s.pageSize, s.pageSizes, s.maxCompare))
	if created {
		s.logger.Debug(ctx, "session created", logger.String("session", sess.ID()))
	}
	return sess, created, nil
}

// LoadRequest describes a page navigation. Zero values keep the session's
// current setting.
type LoadRequest struct {
	Page     int
	PageSize int
	Sort     *ordering.Mode
	Filter   *filter.Spec
}

// Load fetches a page for sess and returns the resulting view. A response
// that arrives after a newer Load of the same session is discarded with
// ErrSuperseded. A failed fetch puts page, page size, sort and filter back to
// what they were; neither a failing nor a stale response changes the session.
func (s *Service) Load(ctx context.Context, sess *Session, req LoadRequest) (types.View, error) {
	sess.mu.Lock()
	prev := sess.snapshot()
	if req.PageSize > 0 {
		if err := sess.pager.SetPageSize(req.PageSize); err != nil {
			sess.restore(prev)
			sess.mu.Unlock()
			return types.View{}, err
		}
	}
	if req.Page > 0 {
		if err := sess.pager.GoTo(req.Page); err != nil {
			sess.restore(prev)
			sess.mu.Unlock()
			return types.View{}, err
		}
	}
	if req.Sort != nil {
		sess.sort = *req.Sort
	}
	if req.Filter != nil {
		sess.spec = *req.Filter
	}
	gen := sess.begin()
	page, size := sess.pager.CurrentPage, sess.pager.PageSize
	sess.mu.Unlock()

	res, err := s.store.GetEntries(ctx, page, size)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.current(gen) {
		metrics.RecordStaleResponse()
		s.logger.Debug(ctx, "discarding stale response",
			logger.String("session", sess.ID()),
			logger.Int("page", page),
		)
		return types.View{}, ErrSuperseded
	}
	if err != nil {
		sess.restore(prev)
		s.logger.Warn(ctx, "fetching entries failed",
			logger.String("session", sess.ID()),
			logger.Int("page", page),
			logger.Error(err),
		)
		return types.View{}, err
	}
	sess.entries = res.Entries
	sess.pager.Update(res.Total, res.TotalPages)
	sess.refresh()
	return sess.view(), nil
}

// View returns what sess displays without fetching.
func (s *Service) View(sess *Session) types.View {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view()
}

// SetFilter replaces the filter of sess and re-applies it to the loaded entries.
func (s *Service) SetFilter(sess *Session, spec filter.Spec) types.View {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.spec = spec
	sess.refresh()
	return sess.view()
}

// ResetFilters restores the default filter.
func (s *Service) ResetFilters(sess *Session) types.View {
	return s.SetFilter(sess, filter.Default())
}

// SetSort changes the ordering of sess.
func (s *Service) SetSort(sess *Session, mode ordering.Mode) types.View {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.sort = mode
	sess.refresh()
	return sess.view()
}

// Displayed returns the entries sess currently shows, in display order.
func (s *Service) Displayed(sess *Session) []model.Entry {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return slices.Clone(sess.displayed)
}

// scopeEntries returns the entries statistics run over.
func (s *Service) scopeEntries(ctx context.Context, sess *Session, scope types.Scope) ([]model.Entry, error) {
	switch scope {
	case types.ScopePage, "":
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return slices.Clone(sess.entries), nil
	case types.ScopeAll:
		all, err := s.store.FetchAll(ctx, fetchAllPageSize)
		if err != nil {
			s.logger.Warn(ctx, "fetching all entries failed", logger.Error(err))
			return nil, err
		}
		return all, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
}

// Stats summarises the entries of scope.
func (s *Service) Stats(ctx context.Context, sess *Session, scope types.Scope) (types.StatsView, error) {
	entries, err := s.scopeEntries(ctx, sess, scope)
	if err != nil {
		return types.StatsView{}, err
	}
	if scope == "" {
		scope = types.ScopePage
	}
	return types.StatsView{Scope: scope, Summary: stats.Summarize(entries)}, nil
}

// Comparison returns the comparison selection of sess with its figures.
func (s *Service) Comparison(ctx context.Context, sess *Session, scope types.Scope) (types.Comparison, error) {
	entries, err := s.scopeEntries(ctx, sess, scope)
	if err != nil {
		return types.Comparison{}, err
	}
	sess.mu.Lock()
	schools, limit := sess.selection.Schools(), sess.selection.Limit()
	sess.mu.Unlock()
	return types.Comparison{
		Schools: schools,
		Limit:   limit,
		Results: stats.Compare(entries, schools, s.trendYears),
	}, nil
}

// AddCompare adds school to the comparison selection.
func (s *Service) AddCompare(sess *Session, school string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.selection.Add(school)
}

// RemoveCompare drops school from the comparison selection.
func (s *Service) RemoveCompare(sess *Session, school string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.selection.Remove(school)
}

// ClearCompare empties the comparison selection.
func (s *Service) ClearCompare(sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.selection.Clear()
}

// favoritesOf returns the favorites of sess, loading them from the local
// store on first use. Caller holds sess.mu.
func (s *Service) favoritesOf(ctx context.Context, sess *Session) (*favorites.Set, error) {
	if sess.favs == nil {
		saved, err := s.local.Favorites(ctx, sess.id)
		if err != nil {
			return nil, fmt.Errorf("load favorites: %w", err)
		}
		sess.favs = favorites.New(saved...)
	}
	return sess.favs, nil
}

// Favorites lists the entries saved by the visitor of sess.
func (s *Service) Favorites(ctx context.Context, sess *Session) ([]model.Entry, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	favs, err := s.favoritesOf(ctx, sess)
	if err != nil {
		return nil, err
	}
	return favs.List(), nil
}

// ToggleFavorite saves or forgets entry id for the visitor of sess. An entry
// not favorited yet must be among the entries sess has loaded.
func (s *Service) ToggleFavorite(ctx context.Context, sess *Session, id int64) (bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	favs, err := s.favoritesOf(ctx, sess)
	if err != nil {
		return false, err
	}
	if favs.Contains(id) {
		favs.Remove(id)
		return false, s.persistFavorites(ctx, sess)
	}
	e, ok := sess.find(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	added := favs.Toggle(e)
	return added, s.persistFavorites(ctx, sess)
}

// RemoveFavorite forgets entry id for the visitor of sess.
func (s *Service) RemoveFavorite(ctx context.Context, sess *Session, id int64) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	favs, err := s.favoritesOf(ctx, sess)
	if err != nil {
		return err
	}
	if !favs.Remove(id) {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	return s.persistFavorites(ctx, sess)
}

// ClearFavorites forgets every entry saved by the visitor of sess.
func (s *Service) ClearFavorites(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	favs, err := s.favoritesOf(ctx, sess)
	if err != nil {
		return err
	}
	favs.Clear()
	return s.persistFavorites(ctx, sess)
}

// persistFavorites writes the favorites of sess. Caller holds sess.mu.
func (s *Service) persistFavorites(ctx context.Context, sess *Session) error {
	if err := s.local.SaveFavorites(ctx, sess.id, sess.favs.List()); err != nil {
		s.logger.Error(ctx, "saving favorites failed", logger.String("session", sess.id), logger.Error(err))
		return err
	}
	return nil
}

// Preferences returns the display settings of the visitor of sess.
func (s *Service) Preferences(ctx context.Context, sess *Session) (types.Preferences, error) {
	on, err := s.local.DarkMode(ctx, sess.ID())
	if err != nil {
		return types.Preferences{}, err
	}
	return types.Preferences{DarkMode: on}, nil
}

// SetPreferences persists the display settings of the visitor of sess.
func (s *Service) SetPreferences(ctx context.Context, sess *Session, p types.Preferences) error {
	return s.local.SetDarkMode(ctx, sess.ID(), p.DarkMode)
}

// SubmitRequest is a new entry from the form together with the
// verification challenge answer. IdempotencyKey, when set, identifies
// retries of one submission; otherwise the challenge answer does.
type SubmitRequest struct {
	Entry           model.Entry `json:"entry"`
	CaptchaResponse string      `json:"captchaResponse"`
	IdempotencyKey  string      `json:"-"`
}

// SubmitResult reports the outcome of Submit. For a duplicate, Entry echoes
// the request; the stored entry is the one accepted first.
type SubmitResult struct {
	Status    string      `json:"status"`
	Duplicate bool        `json:"duplicate"`
	Entry     model.Entry `json:"entry"`
}

// submissionKey identifies a submission across retries: the request token
// together with the entry contents. The id and date are assigned here, so
// they take no part.
func submissionKey(token string, e model.Entry) string {
	e.ID, e.Date = 0, ""
	b, _ := json.Marshal(e)
	h := sha256.New()
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// Submit validates a new entry, completes its derived fields, assigns it a
// unique id and queues it for the record store. Accepted entries are shown at
// the top of sess at once. A retry of an accepted request is acknowledged as
// a duplicate without queueing.
func (s *Service) Submit(ctx context.Context, sess *Session, req SubmitRequest) (SubmitResult, error) {
	if err := s.ready(); err != nil {
		return SubmitResult{}, err
	}
	if req.CaptchaResponse == "" {
		metrics.RecordSubmission("rejected")
		return SubmitResult{}, ErrVerificationRequired
	}

	// The cooldown slot is taken before any work and handed back on rejection.
	now := s.now()
	sess.mu.Lock()
	prev := sess.lastSubmit
	if s.cooldown > 0 && !prev.IsZero() && now.Sub(prev) < s.cooldown {
		sess.mu.Unlock()
		metrics.RecordSubmission("rejected")
		return SubmitResult{}, ErrCooldown
	}
	sess.lastSubmit = now
	sess.mu.Unlock()

	reject := func(err error) (SubmitResult, error) {
		sess.mu.Lock()
		if sess.lastSubmit.Equal(now) {
			sess.lastSubmit = prev
		}
		sess.mu.Unlock()
		metrics.RecordSubmission("rejected")
		return SubmitResult{}, err
	}

	e := req.Entry
	e.Normalize()
	if err := e.Validate(); err != nil {
		return reject(err)
	}
	if err := scoring.Fill(&e); err != nil {
		return reject(fmt.Errorf("%w: %w", model.ErrValidation, err))
	}

	token := req.IdempotencyKey
	if token == "" {
		token = req.CaptchaResponse
	}
	key := submissionKey(token, e)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmission(submissionStatusSeen)
		return SubmitResult{Status: submissionStatusSeen, Duplicate: true, Entry: e}, nil
	}

	e.Stamp(now, &s.ids)
	sub := types.Submission{RequestID: logger.RequestID(ctx), Entry: e, ReceivedAt: now}
	if sub.RequestID == "" {
		sub.RequestID = uuid.NewString()
	}
	if !s.queue.Enqueue(ctx, sub) {
		s.deduper.Unrecord(ctx, key)
		return reject(ErrQueueFull)
	}
	metrics.RecordSubmission("accepted")

	sess.mu.Lock()
	sess.entries = append([]model.Entry{e}, sess.entries...)
	sess.refresh()
	sess.mu.Unlock()

	s.logger.Info(ctx, "submission accepted",
		logger.Int64("id", e.ID),
		logger.String("school", e.School),
		logger.String("session", sess.ID()),
	)
	return SubmitResult{Status: "accepted", Entry: e}, nil
}

// GetStats returns service statistics for the health endpoint.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		out["queueLength"] = s.queue.Len(context.Background())
		out["queueCapacity"] = s.queue.Capacity()
		out["sessions"] = s.sessions.size()
		out["favorites"] = s.sessions.favorites()
		out["seenSubmissions"] = s.deduper.Size()
	}
	return out
}

// IsUpstream reports whether err came from the record store.
func IsUpstream(err error) bool {
	return recordstore.IsUpstream(err)
}

// IsValidation reports whether err is a rejected entry.
func IsValidation(err error) bool {
	return errors.Is(err, model.ErrValidation)
}
