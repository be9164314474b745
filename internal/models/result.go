package models

// AssetRef points at the catalog asset a result represents.
type AssetRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

// FactorContribution is one named, weighted signal in a score explanation.
// Order within ScoreExplanation.Factors is display order only; it does not
// affect Score, which the backend computes.
type FactorContribution struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// ScoreExplanation breaks a result score down into its factors.
type ScoreExplanation struct {
	Total   float64              `json:"total"`
	Factors []FactorContribution `json:"factors,omitempty"`
}

// PersonalizationScore is the per-user component breakdown of a score.
type PersonalizationScore struct {
	Relevance     float64 `json:"relevance"`
	Authority     float64 `json:"authority"`
	Freshness     float64 `json:"freshness"`
	Popularity    float64 `json:"popularity"`
	UserAlignment float64 `json:"user_alignment"`
}

// SearchResult is one ranked hit. Highlights map field names to backend-
// supplied HTML fragments; they must be sanitized before display.
type SearchResult struct {
	ID              string                `json:"id"`
	Asset           AssetRef              `json:"asset"`
	Score           float64               `json:"score"`
	Explanation     *ScoreExplanation     `json:"explanation,omitempty"`
	Highlights      map[string][]string   `json:"highlights,omitempty"`
	Related         []string              `json:"related,omitempty"`
	Personalization *PersonalizationScore `json:"personalization,omitempty"`
}

// SearchResponse is the backend's answer to one SearchQuery.
// TotalCount may exceed len(Results) when the result set is paged.
// Results ordering is authoritative; clients must not re-sort it except by
// an explicit user-chosen sort.
type SearchResponse struct {
	Results     []*SearchResult `json:"results"`
	TotalCount  int             `json:"total_count"`
	SearchAfter string          `json:"search_after,omitempty"`
	QueryTime   int64           `json:"query_time_ms,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
	Kind  string  `json:"kind,omitempty"`
}

// FacetValue is one value of a facet with its result count.
type FacetValue struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected,omitempty"`
}

// Facet is one filterable dimension of the result set.
type Facet struct {
	Field  string       `json:"field"`
	Type   string       `json:"type,omitempty"`
	Values []FacetValue `json:"values"`
}
