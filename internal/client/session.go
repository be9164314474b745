package client

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
)

// ResultsHandler receives each delivered result page. fromCache is true when
// the page was served from the result cache without a backend round trip.
type ResultsHandler func(q *models.SearchQuery, resp *models.SearchResponse, fromCache bool)

// ErrorHandler receives backend failures for requests that were still
// current when they failed. Stale failures are dropped silently.
type ErrorHandler func(q *models.SearchQuery, err error)

// Session drives one interactive search conversation: it debounces typed
// input, keeps exactly one request current, and discards responses that
// arrive after a newer request has been issued. Out-of-order arrival can
// therefore never show results for an old query.
type Session struct {
	id      string
	builder *query.Builder
	backend Backend
	cache   *cache.ResultCache
	tracker *analytics.Tracker
	logger  *zap.Logger

	onResults ResultsHandler
	onError   ErrorHandler
	debouncer *query.Debouncer
	quiet     time.Duration

	gen atomic.Uint64

	mu       sync.Mutex
	cancel   context.CancelFunc
	current  *models.SearchQuery
	lastResp *models.SearchResponse
	userID   string
	closed   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCache enables result-page memoization.
func WithCache(c *cache.ResultCache) SessionOption {
	return func(s *Session) { s.cache = c }
}

// WithTracker enables search/click telemetry.
func WithTracker(t *analytics.Tracker) SessionOption {
	return func(s *Session) { s.tracker = t }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithQuietPeriod overrides the debounce quiet period for typed input.
func WithQuietPeriod(d time.Duration) SessionOption {
	return func(s *Session) { s.quiet = d }
}

// WithSessionUser attributes the session to a user.
func WithSessionUser(userID string) SessionOption {
	return func(s *Session) { s.userID = userID }
}

// NewSession creates a session. onResults is required; onError may be nil, in
// which case failures are only logged.
func NewSession(builder *query.Builder, backend Backend, onResults ResultsHandler, onError ErrorHandler, opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.New().String(),
		builder:   builder,
		backend:   backend,
		logger:    zap.NewNop(),
		onResults: onResults,
		onError:   onError,
		quiet:     query.DefaultQuietPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = query.NewDebouncer(s.quiet, func(text string) {
		s.Submit(text)
	})
	return s
}

// ID returns the session identifier attached to every query it issues.
func (s *Session) ID() string { return s.id }

// SetText feeds one keystroke's worth of input. A search fires only after the
// quiet period elapses with no further input.
func (s *Session) SetText(text string) {
	s.debouncer.Input(text)
}

// Submit searches for text immediately, bypassing the debounce. Empty text
// clears the session instead of searching.
func (s *Session) Submit(text string, opts ...query.Option) {
	if strings.TrimSpace(text) == "" {
		s.Clear()
		return
	}
	s.mu.Lock()
	prev := s.current
	userID := s.userID
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	opts = append([]query.Option{query.WithUser(userID, s.id)}, opts...)
	q, err := s.builder.Build(text, prev, opts...)
	if err != nil {
		s.fail(nil, err)
		return
	}
	s.execute(q)
}

// Clear abandons the current query. Any in-flight request is canceled and a
// late response for it is discarded; nothing is delivered and no error
// surfaces. The user's narrowing does not survive a clear.
func (s *Session) Clear() {
	s.gen.Add(1)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = nil
	s.lastResp = nil
	s.mu.Unlock()
}

// NextPage requests the page after the last delivered one.
func (s *Session) NextPage() {
	s.mu.Lock()
	current, lastResp := s.current, s.lastResp
	s.mu.Unlock()
	if current == nil {
		return
	}
	q, err := s.builder.NextPage(current, lastResp)
	if err != nil {
		s.fail(current, err)
		return
	}
	s.execute(q)
}

// SelectFacet narrows (or, with empty values, clears) one facet field and
// reissues the search from the first page.
func (s *Session) SelectFacet(field string, values []string) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return
	}
	s.execute(query.ApplyFacetSelection(current, field, values))
}

// SetSort changes the sort order and reissues the search from the first page.
func (s *Session) SetSort(sort []models.SortOption) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return
	}
	s.execute(query.ApplySort(current, sort))
}

// TrackClick records that the user opened a result. Fire-and-forget.
func (s *Session) TrackClick(resultID string, position int, score float64) {
	if s.tracker == nil {
		return
	}
	s.mu.Lock()
	text := ""
	if s.current != nil {
		text = s.current.Text
	}
	s.mu.Unlock()
	s.tracker.TrackClick(&analytics.ClickEvent{
		SessionID: s.id,
		Text:      text,
		ResultID:  resultID,
		Position:  position,
		Score:     score,
	})
}

// execute makes q the current request and fetches its results. Any response
// belonging to an earlier generation is discarded on arrival.
func (s *Session) execute(q *models.SearchQuery) {
	gen := s.gen.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.current = q
	s.mu.Unlock()

	key := ""
	if s.cache != nil {
		key = cache.Key(q, s.builder.Profile().Signature())
		if resp, ok := s.cache.Get(key); ok {
			cancel()
			s.deliver(gen, q, resp, true)
			return
		}
	}

	go func() {
		defer cancel()
		resp, err := s.backend.Search(ctx, q, s.builder.Profile().Name)
		if s.gen.Load() != gen {
			s.logger.Debug("discarding stale response",
				zap.String("text", q.Text), zap.Error(ErrStaleResponse))
			return
		}
		if err != nil {
			s.fail(q, err)
			return
		}
		if s.cache != nil {
			s.cache.Set(key, resp)
		}
		s.deliver(gen, q, resp, false)
	}()
}

func (s *Session) deliver(gen uint64, q *models.SearchQuery, resp *models.SearchResponse, fromCache bool) {
	if s.gen.Load() != gen {
		return
	}
	s.mu.Lock()
	s.lastResp = resp
	s.mu.Unlock()

	if s.tracker != nil && !fromCache {
		s.tracker.TrackSearch(&analytics.SearchEvent{
			SessionID: s.id,
			UserID:    q.Context.UserID,
			Text:      q.Text,
			QueryType: string(q.Type),
			Profile:   s.builder.Profile().Name,
			Hits:      resp.TotalCount,
		})
	}
	if s.onResults != nil {
		s.onResults(q, resp, fromCache)
	}
}

func (s *Session) fail(q *models.SearchQuery, err error) {
	s.logger.Warn("search failed", zap.Error(err))
	if s.onError != nil {
		s.onError(q, err)
	}
}

// Close stops the debouncer and cancels any in-flight request.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.debouncer.Close()
}
