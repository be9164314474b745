// Package models defines core data structures for search queries, results, and facets.
package models

import (
	"fmt"
	"time"
)

// QueryType selects how the backend interprets a query.
type QueryType string

const (
	QueryFullText        QueryType = "FULL_TEXT"
	QuerySemantic        QueryType = "SEMANTIC"
	QueryHybrid          QueryType = "HYBRID"
	QueryStructured      QueryType = "STRUCTURED"
	QueryNaturalLanguage QueryType = "NATURAL_LANGUAGE"
	QueryFaceted         QueryType = "FACETED"
	QueryFederated       QueryType = "FEDERATED"
)

// Valid reports whether t is one of the known query types.
func (t QueryType) Valid() bool {
	switch t {
	case QueryFullText, QuerySemantic, QueryHybrid, QueryStructured,
		QueryNaturalLanguage, QueryFaceted, QueryFederated:
		return true
	}
	return false
}

// FacetOperator combines multiple selected values within one facet field.
type FacetOperator string

const (
	FacetOr  FacetOperator = "OR"
	FacetAnd FacetOperator = "AND"
	FacetNot FacetOperator = "NOT"
)

// Filter is a generic field filter (exact match or range, backend-interpreted).
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator,omitempty"`
	Value    interface{} `json:"value"`
}

// FacetFilter narrows results to selected values of one facet field.
// Values within a field combine with Operator (default OR); filters on
// distinct fields always combine as AND.
type FacetFilter struct {
	Field    string        `json:"field"`
	Values   []string      `json:"values"`
	Operator FacetOperator `json:"operator,omitempty"`
	Exclude  bool          `json:"exclude,omitempty"`
}

// SortDirection orders results ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOption is one user-chosen secondary sort key.
type SortOption struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
	// Missing controls placement of documents lacking the field: "first" or "last".
	Missing string `json:"missing,omitempty"`
}

// Pagination selects the result window. When Deep is true, SearchAfter
// carries the opaque cursor from the previous response and Offset is ignored.
type Pagination struct {
	Offset      int    `json:"offset"`
	Limit       int    `json:"limit"`
	Deep        bool   `json:"deep,omitempty"`
	SearchAfter string `json:"search_after,omitempty"`
}

// HighlightOptions controls per-request highlighting.
type HighlightOptions struct {
	Enabled      bool     `json:"enabled"`
	Fields       []string `json:"fields,omitempty"`
	FragmentSize int      `json:"fragment_size,omitempty"`
	MaxFragments int      `json:"max_fragments,omitempty"`
}

// QueryIntent is the inferred intent behind a query.
type QueryIntent struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Entities   []string `json:"entities,omitempty"`
}

// SearchContext identifies who is searching and from where.
type SearchContext struct {
	UserID    string       `json:"user_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Timestamp time.Time    `json:"timestamp,omitempty"`
	Locale    string       `json:"locale,omitempty"`
	Device    string       `json:"device,omitempty"`
	GeoRegion string       `json:"geo_region,omitempty"`
	Intent    *QueryIntent `json:"intent,omitempty"`
}

// PersonalizationContext carries per-user signals the backend may use for ranking.
type PersonalizationContext struct {
	ProfileTags   []string           `json:"profile_tags,omitempty"`
	RecentQueries []string           `json:"recent_queries,omitempty"`
	Preferences   map[string]float64 `json:"preferences,omitempty"`
	Connections   []string           `json:"connections,omitempty"`
}

// SearchQuery is one search request. Queries are built fresh per (debounced)
// text change, mutated by facet/sort/filter interactions, and discarded once
// the matching response has been rendered.
type SearchQuery struct {
	Text            string                  `json:"text"`
	Type            QueryType               `json:"type,omitempty"`
	Filters         []Filter                `json:"filters,omitempty"`
	FacetFilters    []FacetFilter           `json:"facet_filters,omitempty"`
	Sort            []SortOption            `json:"sort,omitempty"`
	Pagination      Pagination              `json:"pagination"`
	Highlight       HighlightOptions        `json:"highlight,omitempty"`
	Context         SearchContext           `json:"context,omitempty"`
	Personalization *PersonalizationContext `json:"personalization,omitempty"`
}

const (
	// DefaultLimit is the page size applied when a query does not set one.
	DefaultLimit = 20
	// MaxLimit caps the page size regardless of what the caller asks for.
	MaxLimit = 100
)

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the text is empty; otherwise normalizes the type,
// limit, and offset in place.
func (q *SearchQuery) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query text cannot be empty")
	}
	if q.Type == "" {
		q.Type = QueryHybrid
	}
	if !q.Type.Valid() {
		return fmt.Errorf("unknown query type: %s", q.Type)
	}
	if q.Pagination.Limit <= 0 {
		q.Pagination.Limit = DefaultLimit
	}
	if q.Pagination.Limit > MaxLimit {
		q.Pagination.Limit = MaxLimit
	}
	if q.Pagination.Offset < 0 {
		return fmt.Errorf("pagination offset cannot be negative: %d", q.Pagination.Offset)
	}
	if q.Pagination.Deep && q.Pagination.Offset > 0 {
		return fmt.Errorf("deep paging uses a cursor; offset must be 0")
	}
	return nil
}

// FacetFilterFor returns the facet filter for field, or nil when none is set.
func (q *SearchQuery) FacetFilterFor(field string) *FacetFilter {
	for i := range q.FacetFilters {
		if q.FacetFilters[i].Field == field {
			return &q.FacetFilters[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the query. Mutating the copy never affects
// the original, which is what lets superseded queries stay comparable.
func (q *SearchQuery) Clone() *SearchQuery {
	c := *q
	c.Filters = append([]Filter(nil), q.Filters...)
	c.FacetFilters = make([]FacetFilter, len(q.FacetFilters))
	for i, f := range q.FacetFilters {
		c.FacetFilters[i] = f
		c.FacetFilters[i].Values = append([]string(nil), f.Values...)
	}
	c.Sort = append([]SortOption(nil), q.Sort...)
	c.Highlight.Fields = append([]string(nil), q.Highlight.Fields...)
	if q.Context.Intent != nil {
		intent := *q.Context.Intent
		intent.Entities = append([]string(nil), q.Context.Intent.Entities...)
		c.Context.Intent = &intent
	}
	if q.Personalization != nil {
		p := *q.Personalization
		p.ProfileTags = append([]string(nil), q.Personalization.ProfileTags...)
		p.RecentQueries = append([]string(nil), q.Personalization.RecentQueries...)
		p.Connections = append([]string(nil), q.Personalization.Connections...)
		if q.Personalization.Preferences != nil {
			p.Preferences = make(map[string]float64, len(q.Personalization.Preferences))
			for k, v := range q.Personalization.Preferences {
				p.Preferences[k] = v
			}
		}
		c.Personalization = &p
	}
	return &c
}
