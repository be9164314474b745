package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/profile"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordSearch(ctx, &SearchEvent{
		ID:        "ev-1",
		SessionID: "s-1",
		Text:      "customer churn",
		QueryType: "hybrid",
		Profile:   "default",
		Hits:      12,
	})
	require.NoError(t, err)

	n, err := store.CountSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStore_RecordClick(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordClick(ctx, &ClickEvent{
		ID:        "ev-2",
		SessionID: "s-1",
		Text:      "customer churn",
		ResultID:  "asset-9",
		Position:  2,
		Score:     0.91,
	})
	require.NoError(t, err)

	n, err := store.CountClicks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStore_TopQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, text := range []string{"churn", "churn", "churn", "revenue", "revenue", "orders"} {
		err := store.RecordSearch(ctx, &SearchEvent{
			ID:        string(rune('a' + i)),
			SessionID: "s-1",
			Text:      text,
		})
		require.NoError(t, err)
	}

	top, err := store.TopQueries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, QueryCount{Text: "churn", Count: 3}, top[0])
	assert.Equal(t, QueryCount{Text: "revenue", Count: 2}, top[1])
}

func TestTracker_recordsWhenEnabled(t *testing.T) {
	store := newTestStore(t)
	cfg := profile.AnalyticsConfig{Enabled: true, TrackQueries: true, TrackClicks: true, SampleRate: 1.0}
	tracker := NewTracker(store, cfg)

	tracker.TrackSearch(&SearchEvent{SessionID: "s-1", Text: "churn"})
	tracker.TrackClick(&ClickEvent{SessionID: "s-1", Text: "churn", ResultID: "a-1", Position: 0})
	tracker.Close()

	searches, err := store.CountSearches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), searches)
	clicks, err := store.CountClicks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), clicks)
}

func TestTracker_disabledRecordsNothing(t *testing.T) {
	store := newTestStore(t)
	tracker := NewTracker(store, profile.AnalyticsConfig{Enabled: false})

	tracker.TrackSearch(&SearchEvent{SessionID: "s-1", Text: "churn"})
	tracker.Close()

	n, err := store.CountSearches(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTracker_zeroSampleRateRecordsNothing(t *testing.T) {
	store := newTestStore(t)
	cfg := profile.AnalyticsConfig{Enabled: true, TrackQueries: true, SampleRate: 0}
	tracker := NewTracker(store, cfg)

	for i := 0; i < 20; i++ {
		tracker.TrackSearch(&SearchEvent{SessionID: "s-1", Text: "churn"})
	}
	tracker.Close()

	n, err := store.CountSearches(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingStore struct {
	mu       sync.Mutex
	searches int
}

func (f *failingStore) RecordSearch(ctx context.Context, ev *SearchEvent) error {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	return errors.New("disk full")
}

func (f *failingStore) RecordClick(ctx context.Context, ev *ClickEvent) error {
	return errors.New("disk full")
}

func (f *failingStore) CountSearches(ctx context.Context) (int64, error) { return 0, nil }
func (f *failingStore) CountClicks(ctx context.Context) (int64, error)   { return 0, nil }
func (f *failingStore) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	return nil, nil
}
func (f *failingStore) Close() error { return nil }

func TestTracker_swallowsStoreErrors(t *testing.T) {
	// A failing analytics store must never surface to the caller.
	store := &failingStore{}
	cfg := profile.AnalyticsConfig{Enabled: true, TrackQueries: true, TrackClicks: true, SampleRate: 1.0}
	tracker := NewTracker(store, cfg)

	tracker.TrackSearch(&SearchEvent{SessionID: "s-1", Text: "churn"})
	tracker.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.searches, "the write should have been attempted")
}

type recordingForwarder struct {
	mu       sync.Mutex
	searches []*SearchEvent
	clicks   []*ClickEvent
}

func (r *recordingForwarder) ForwardSearch(ctx context.Context, ev *SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, ev)
	return nil
}

func (r *recordingForwarder) ForwardClick(ctx context.Context, ev *ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, ev)
	return nil
}

func TestTracker_forwardsToCollector(t *testing.T) {
	store := newTestStore(t)
	fwd := &recordingForwarder{}
	cfg := profile.AnalyticsConfig{Enabled: true, TrackQueries: true, SampleRate: 1.0}
	tracker := NewTracker(store, cfg, WithForwarder(fwd))

	tracker.TrackSearch(&SearchEvent{SessionID: "s-1", Text: "churn"})
	tracker.Close()

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	require.Len(t, fwd.searches, 1)
	assert.NotEmpty(t, fwd.searches[0].ID, "tracker should assign an event id")
}
