package analytics

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/profile"
)

// Forwarder ships events to a remote collector in addition to the local
// store. Implementations must be safe for concurrent use.
type Forwarder interface {
	ForwardSearch(ctx context.Context, ev *SearchEvent) error
	ForwardClick(ctx context.Context, ev *ClickEvent) error
}

// Tracker records events asynchronously. Callers never block on recording and
// never see recording errors; a lost event costs analytics fidelity, not a
// search.
type Tracker struct {
	store     EventStore
	forwarder Forwarder
	cfg       profile.AnalyticsConfig
	logger    *zap.Logger
	timeout   time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	wg     sync.WaitGroup
	closed bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithForwarder adds a remote collector alongside the local store.
func WithForwarder(f Forwarder) TrackerOption {
	return func(t *Tracker) { t.forwarder = f }
}

// WithTrackerLogger sets the logger.
func WithTrackerLogger(logger *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

// NewTracker creates a tracker writing to store, governed by cfg.
func NewTracker(store EventStore, cfg profile.AnalyticsConfig, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:   store,
		cfg:     cfg,
		logger:  zap.NewNop(),
		timeout: 5 * time.Second,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// sampled reports whether this event falls inside the configured sample.
func (t *Tracker) sampled() bool {
	if t.cfg.SampleRate >= 1 {
		return true
	}
	if t.cfg.SampleRate <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng.Float64() < t.cfg.SampleRate
}

// TrackSearch records a search submission. Returns immediately.
func (t *Tracker) TrackSearch(ev *SearchEvent) {
	if !t.cfg.Enabled || !t.cfg.TrackQueries || !t.sampled() {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.store.RecordSearch(ctx, ev); err != nil {
			t.logger.Warn("failed to record search event", zap.Error(err))
		}
		if t.forwarder != nil {
			if err := t.forwarder.ForwardSearch(ctx, ev); err != nil {
				t.logger.Warn("failed to forward search event", zap.Error(err))
			}
		}
	}()
}

// TrackClick records a result click. Returns immediately.
func (t *Tracker) TrackClick(ev *ClickEvent) {
	if !t.cfg.Enabled || !t.cfg.TrackClicks || !t.sampled() {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.store.RecordClick(ctx, ev); err != nil {
			t.logger.Warn("failed to record click event", zap.Error(err))
		}
		if t.forwarder != nil {
			if err := t.forwarder.ForwardClick(ctx, ev); err != nil {
				t.logger.Warn("failed to forward click event", zap.Error(err))
			}
		}
	}()
}

// Close waits for in-flight recordings to finish. The underlying store is not
// closed; the owner closes it.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
