package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
)

// fakeBackend serves canned responses and can hold individual requests until
// released, to force out-of-order arrival.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	blocked  map[string]chan struct{}
	failWith error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{blocked: make(map[string]chan struct{})}
}

// block makes the next Search for text wait until the returned func is called.
func (f *fakeBackend) block(text string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.blocked[text] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeBackend) Search(ctx context.Context, q *models.SearchQuery, profileName string) (*models.SearchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Text)
	gate := f.blocked[q.Text]
	failWith := f.failWith
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failWith != nil {
		return nil, failWith
	}
	return &models.SearchResponse{
		Results:    []*models.SearchResult{{ID: "hit-" + q.Text, Score: 0.9}},
		TotalCount: 1,
	}, nil
}

func (f *fakeBackend) Suggest(ctx context.Context, prefix, profileName string, limit int) ([]models.Suggestion, error) {
	return nil, nil
}

func (f *fakeBackend) Facets(ctx context.Context, q *models.SearchQuery, profileName string) ([]models.Facet, error) {
	return nil, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type delivery struct {
	q         *models.SearchQuery
	resp      *models.SearchResponse
	fromCache bool
}

func collector() (ResultsHandler, chan delivery) {
	ch := make(chan delivery, 16)
	return func(q *models.SearchQuery, resp *models.SearchResponse, fromCache bool) {
		ch <- delivery{q: q, resp: resp, fromCache: fromCache}
	}, ch
}

func waitDelivery(t *testing.T, ch chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for results")
		return delivery{}
	}
}

func assertNoDelivery(t *testing.T, ch chan delivery) {
	t.Helper()
	select {
	case d := <-ch:
		t.Fatalf("unexpected delivery for %q", d.q.Text)
	case <-time.After(150 * time.Millisecond):
	}
}

func newTestSession(t *testing.T, backend Backend, opts ...SessionOption) (*Session, chan delivery) {
	t.Helper()
	onResults, ch := collector()
	builder := query.NewBuilder(nil, nil)
	s := NewSession(builder, backend, onResults, nil, opts...)
	t.Cleanup(s.Close)
	return s, ch
}

func TestSession_Submit(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend)

	s.Submit("customer churn")
	d := waitDelivery(t, ch)
	assert.Equal(t, "customer churn", d.q.Text)
	assert.Equal(t, "hit-customer churn", d.resp.Results[0].ID)
	assert.False(t, d.fromCache)
	assert.Equal(t, s.ID(), d.q.Context.SessionID)
}

func TestSession_discardsStaleResponse(t *testing.T) {
	// The response for an earlier query arrives after a newer query's; it
	// must be dropped, not displayed.
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend)

	release := backend.block("old query")
	s.Submit("old query")
	s.Submit("new query")

	d := waitDelivery(t, ch)
	assert.Equal(t, "new query", d.q.Text)

	release()
	assertNoDelivery(t, ch)
}

func TestSession_staleFailureIsSilent(t *testing.T) {
	backend := newFakeBackend()
	var errMu sync.Mutex
	var errs []error
	onResults, ch := collector()
	builder := query.NewBuilder(nil, nil)
	s := NewSession(builder, backend, onResults, func(q *models.SearchQuery, err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	})
	defer s.Close()

	release := backend.block("doomed")
	s.Submit("doomed") // will be canceled by the next submit
	s.Submit("fine")
	waitDelivery(t, ch)
	release()

	assertNoDelivery(t, ch)
	errMu.Lock()
	defer errMu.Unlock()
	assert.Empty(t, errs, "a canceled stale request must not surface an error")
}

func TestSession_clearAbandonsInFlightSilently(t *testing.T) {
	// Clearing the input while a request is in flight must cancel it, drop
	// its late response, and surface no error.
	backend := newFakeBackend()
	var errMu sync.Mutex
	var errs []error
	onResults, ch := collector()
	builder := query.NewBuilder(nil, nil)
	s := NewSession(builder, backend, onResults, func(q *models.SearchQuery, err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}, WithQuietPeriod(20*time.Millisecond))
	defer s.Close()

	release := backend.block("old query")
	s.Submit("old query")
	s.SetText("")
	time.Sleep(60 * time.Millisecond) // let the debounced clear land
	release()

	assertNoDelivery(t, ch)
	errMu.Lock()
	defer errMu.Unlock()
	assert.Empty(t, errs, "clearing the query must not surface an error")
}

func TestSession_searchAfterClearStartsFresh(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend)

	s.Submit("churn")
	waitDelivery(t, ch)
	s.SelectFacet("owner", []string{"core"})
	waitDelivery(t, ch)

	s.Submit("")
	s.Submit("revenue")
	d := waitDelivery(t, ch)
	assert.Equal(t, "revenue", d.q.Text)
	assert.Empty(t, d.q.FacetFilters, "narrowing must not survive a clear")
}

func TestSession_servesFromCache(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend, WithCache(cache.New(16, 0)))

	s.Submit("churn")
	first := waitDelivery(t, ch)
	require.False(t, first.fromCache)

	s.Submit("churn")
	second := waitDelivery(t, ch)
	assert.True(t, second.fromCache)
	assert.Equal(t, 1, backend.callCount(), "identical request should not hit the backend twice")
}

func TestSession_debouncedTyping(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend, WithQuietPeriod(40*time.Millisecond))

	for _, text := range []string{"c", "cu", "cus", "customer churn"} {
		s.SetText(text)
		time.Sleep(5 * time.Millisecond)
	}

	d := waitDelivery(t, ch)
	assert.Equal(t, "customer churn", d.q.Text)
	assertNoDelivery(t, ch)
	assert.Equal(t, 1, backend.callCount(), "only the final text should reach the backend")
}

func TestSession_NextPage(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend)

	s.Submit("churn")
	waitDelivery(t, ch)

	s.NextPage()
	d := waitDelivery(t, ch)
	assert.Equal(t, 20, d.q.Pagination.Offset)
	assert.Equal(t, 20, d.q.Pagination.Limit)
}

func TestSession_SelectFacet(t *testing.T) {
	backend := newFakeBackend()
	s, ch := newTestSession(t, backend)

	s.Submit("churn")
	waitDelivery(t, ch)

	s.SelectFacet("owner", []string{"analytics-core"})
	d := waitDelivery(t, ch)
	require.Len(t, d.q.FacetFilters, 1)
	assert.Equal(t, "owner", d.q.FacetFilters[0].Field)
	assert.Equal(t, 0, d.q.Pagination.Offset, "facet change restarts paging")
}

func TestSession_backendFailureSurfaces(t *testing.T) {
	backend := newFakeBackend()
	backend.failWith = &RequestError{Op: "search", StatusCode: 503}

	errCh := make(chan error, 1)
	builder := query.NewBuilder(nil, nil)
	s := NewSession(builder, backend, func(q *models.SearchQuery, resp *models.SearchResponse, fromCache bool) {
		t.Error("no results expected")
	}, func(q *models.SearchQuery, err error) {
		errCh <- err
	})
	defer s.Close()

	s.Submit("churn")
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}
