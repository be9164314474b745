// Package cache memoizes recent result pages. Entries are keyed by the full
// request signature (text, filters, facets, sort, pagination, profile), so a
// profile change naturally misses and a purge on reload keeps memory bounded.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

// DefaultCapacity bounds the number of memoized pages when the config does
// not say otherwise.
const DefaultCapacity = 256

// ResultCache is an LRU cache with TTL for search responses.
type ResultCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
}

type cacheEntry struct {
	key      string
	value    *models.SearchResponse
	storedAt time.Time
}

// New creates a cache holding up to capacity pages, each valid for ttl.
// A zero ttl disables expiry; a non-positive capacity falls back to the
// default.
func New(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Key derives the cache key for a query under a profile signature. Two
// requests share a key only when every request-shaping input matches.
func Key(q *models.SearchQuery, profileSignature string) string {
	payload := struct {
		Text         string               `json:"text"`
		Type         models.QueryType     `json:"type"`
		Filters      []models.Filter      `json:"filters,omitempty"`
		FacetFilters []models.FacetFilter `json:"facet_filters,omitempty"`
		Sort         []models.SortOption  `json:"sort,omitempty"`
		Pagination   models.Pagination    `json:"pagination"`
		Profile      string               `json:"profile"`
	}{
		Text:         q.Text,
		Type:         q.Type,
		Filters:      q.Filters,
		FacetFilters: q.FacetFilters,
		Sort:         q.Sort,
		Pagination:   q.Pagination,
		Profile:      profileSignature,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return q.Text + "|" + profileSignature
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached response for key if present and fresh.
func (c *ResultCache) Get(key string) (*models.SearchResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.lru.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.value, true
}

// Set stores the response for key, evicting the oldest entry at capacity.
func (c *ResultCache) Set(key string, value *models.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.storedAt = time.Now()
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value, storedAt: time.Now()})
	c.entries[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Purge drops every entry. Called when the active profile set changes.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
