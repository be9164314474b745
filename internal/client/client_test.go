package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/models"
)

func TestHTTPBackend_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "customer churn", req.Query.Text)
		assert.Equal(t, "default", req.Profile)
		json.NewEncoder(w).Encode(&models.SearchResponse{
			Results:    []*models.SearchResult{{ID: "a1", Score: 0.95}},
			TotalCount: 1,
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL)
	q := &models.SearchQuery{Text: "customer churn"}
	require.NoError(t, q.Validate())

	resp, err := b.Search(context.Background(), q, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "a1", resp.Results[0].ID)
}

func TestHTTPBackend_retriesReadOnceOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(&models.SearchResponse{TotalCount: 2})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL)
	q := &models.SearchQuery{Text: "churn"}
	require.NoError(t, q.Validate())

	resp, err := b.Search(context.Background(), q, "default")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPBackend_doesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL)
	q := &models.SearchQuery{Text: "churn"}
	require.NoError(t, q.Validate())

	_, err := b.Search(context.Background(), q, "default")
	require.Error(t, err)
	reqErr, ok := err.(*RequestError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.False(t, reqErr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPBackend_neverRetriesTelemetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL)
	err := b.ForwardSearch(context.Background(), &analytics.SearchEvent{Text: "churn"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "telemetry writes must be attempted exactly once")
}

func TestHTTPBackend_Suggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/suggest", r.URL.Path)
		assert.Equal(t, "chur", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"suggestions": []models.Suggestion{{Text: "churn", Score: 0.9}},
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL)
	got, err := b.Suggest(context.Background(), "chur", "default", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "churn", got[0].Text)
}

func TestRequestError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  *RequestError
		want bool
	}{
		{"5xx", &RequestError{Op: "search", StatusCode: 502}, true},
		{"4xx", &RequestError{Op: "search", StatusCode: 422}, false},
		{"transport", &RequestError{Op: "search", Err: context.DeadlineExceeded}, true},
		{"no error", &RequestError{Op: "search"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}
