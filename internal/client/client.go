// Package client talks to the search backend and drives interactive search
// sessions: debounced input, stale-response discard, result caching, and
// fire-and-forget telemetry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/models"
)

// Backend is the search engine the gateway delegates to.
type Backend interface {
	Search(ctx context.Context, q *models.SearchQuery, profileName string) (*models.SearchResponse, error)
	Suggest(ctx context.Context, prefix, profileName string, limit int) ([]models.Suggestion, error)
	Facets(ctx context.Context, q *models.SearchQuery, profileName string) ([]models.Facet, error)
}

// HTTPBackend implements Backend over HTTP/JSON. Read operations are retried
// once on transport failures and 5xx responses; telemetry is never retried.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// BackendOption configures an HTTPBackend.
type BackendOption func(*HTTPBackend)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *HTTPBackend) { b.client = c }
}

// WithBackendLogger sets the logger.
func WithBackendLogger(logger *zap.Logger) BackendOption {
	return func(b *HTTPBackend) { b.logger = logger }
}

// NewHTTPBackend creates a backend client for baseURL, e.g.
// "http://search-engine:9200/api/v1".
func NewHTTPBackend(baseURL string, opts ...BackendOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type searchRequest struct {
	Query   *models.SearchQuery `json:"query"`
	Profile string              `json:"profile,omitempty"`
}

// Search executes a search request against the backend.
func (b *HTTPBackend) Search(ctx context.Context, q *models.SearchQuery, profileName string) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	err := b.doRead(ctx, "search", http.MethodPost, b.baseURL+"/search",
		&searchRequest{Query: q, Profile: profileName}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest fetches autocomplete candidates for a prefix.
func (b *HTTPBackend) Suggest(ctx context.Context, prefix, profileName string, limit int) ([]models.Suggestion, error) {
	u := fmt.Sprintf("%s/suggest?q=%s&profile=%s&limit=%d",
		b.baseURL, url.QueryEscape(prefix), url.QueryEscape(profileName), limit)
	var out struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := b.doRead(ctx, "suggest", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// Facets fetches facet counts for a query without fetching results.
func (b *HTTPBackend) Facets(ctx context.Context, q *models.SearchQuery, profileName string) ([]models.Facet, error) {
	var out struct {
		Facets []models.Facet `json:"facets"`
	}
	err := b.doRead(ctx, "facets", http.MethodPost, b.baseURL+"/facets",
		&searchRequest{Query: q, Profile: profileName}, &out)
	if err != nil {
		return nil, err
	}
	return out.Facets, nil
}

// ForwardSearch ships a search event to the backend collector. One attempt
// only; analytics writes are not idempotent and not worth a retry.
func (b *HTTPBackend) ForwardSearch(ctx context.Context, ev *analytics.SearchEvent) error {
	return b.doOnce(ctx, "track search", http.MethodPost, b.baseURL+"/events/search", ev, nil)
}

// ForwardClick ships a click event to the backend collector.
func (b *HTTPBackend) ForwardClick(ctx context.Context, ev *analytics.ClickEvent) error {
	return b.doOnce(ctx, "track click", http.MethodPost, b.baseURL+"/events/click", ev, nil)
}

// doRead performs a read request with a single retry on retryable failures.
func (b *HTTPBackend) doRead(ctx context.Context, op, method, u string, body, out interface{}) error {
	err := b.doOnce(ctx, op, method, u, body, out)
	if err == nil {
		return nil
	}
	reqErr, ok := err.(*RequestError)
	if !ok || !reqErr.Retryable() || ctx.Err() != nil {
		return err
	}
	b.logger.Debug("retrying backend read", zap.String("op", op), zap.Error(err))
	return b.doOnce(ctx, op, method, u, body, out)
}

func (b *HTTPBackend) doOnce(ctx context.Context, op, method, u string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &RequestError{Op: op, StatusCode: resp.StatusCode}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
