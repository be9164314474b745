// Package profile defines search profiles: named, versioned bundles of
// settings that control how the backend engine interprets, expands, ranks,
// facets, and highlights a query.
package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Algorithm is the base retrieval algorithm of the engine.
type Algorithm string

const (
	AlgorithmBM25   Algorithm = "bm25"
	AlgorithmTFIDF  Algorithm = "tfidf"
	AlgorithmHybrid Algorithm = "hybrid"
	AlgorithmNeural Algorithm = "neural"
)

// RankAlgorithm is the result-ordering algorithm applied after retrieval.
type RankAlgorithm string

const (
	RankWeightedSum RankAlgorithm = "weighted_sum"
	RankLTR         RankAlgorithm = "learning_to_rank"
	RankReciprocal  RankAlgorithm = "reciprocal_rank_fusion"
)

// IndexField describes one indexed field of a catalog asset.
type IndexField struct {
	Name          string  `yaml:"name" json:"name" validate:"required"`
	Weight        float64 `yaml:"weight" json:"weight"`
	Analyzer      string  `yaml:"analyzer" json:"analyzer,omitempty"`
	Searchable    bool    `yaml:"searchable" json:"searchable"`
	Facetable     bool    `yaml:"facetable" json:"facetable"`
	Sortable      bool    `yaml:"sortable" json:"sortable"`
	Highlightable bool    `yaml:"highlightable" json:"highlightable"`
	Semantic      bool    `yaml:"semantic" json:"semantic"`
}

// SemanticModel is one embedding model available to the engine.
type SemanticModel struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Dimensions int    `yaml:"dimensions" json:"dimensions" validate:"gt=0"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
}

// EmbeddingConfig holds shared embedding settings. Dimensions must match
// every enabled SemanticModel.
type EmbeddingConfig struct {
	Dimensions int `yaml:"dimensions" json:"dimensions" validate:"gte=0"`
	BatchSize  int `yaml:"batch_size" json:"batch_size,omitempty" validate:"gte=0"`
	CacheSize  int `yaml:"cache_size" json:"cache_size,omitempty" validate:"gte=0"`
}

// FuzzyConfig controls typo tolerance.
type FuzzyConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	MaxEdits      int  `yaml:"max_edits" json:"max_edits" validate:"gte=0,lte=2"`
	PrefixLength  int  `yaml:"prefix_length" json:"prefix_length" validate:"gte=0"`
	MinTermLength int  `yaml:"min_term_length" json:"min_term_length" validate:"gte=0"`
}

// SynonymSet is one named group of interchangeable terms.
type SynonymSet struct {
	Name          string   `yaml:"name" json:"name"`
	Terms         []string `yaml:"terms" json:"terms" validate:"min=2"`
	Bidirectional bool     `yaml:"bidirectional" json:"bidirectional"`
}

// StemmingConfig controls stemming during analysis.
type StemmingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Language string `yaml:"language" json:"language,omitempty"`
}

// StopWordConfig controls stop-word removal.
type StopWordConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Words   []string `yaml:"words" json:"words,omitempty"`
}

// EngineConfig is the retrieval side of a profile.
type EngineConfig struct {
	Algorithm   Algorithm       `yaml:"algorithm" json:"algorithm"`
	IndexFields []IndexField    `yaml:"index_fields" json:"index_fields" validate:"dive"`
	Models      []SemanticModel `yaml:"models" json:"models,omitempty" validate:"dive"`
	Embedding   EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Fuzzy       FuzzyConfig     `yaml:"fuzzy" json:"fuzzy"`
	Synonyms    []SynonymSet    `yaml:"synonyms" json:"synonyms,omitempty" validate:"dive"`
	Stemming    StemmingConfig  `yaml:"stemming" json:"stemming"`
	StopWords   StopWordConfig  `yaml:"stop_words" json:"stop_words"`
}

// ParsingConfig selects which query grammars are accepted.
type ParsingConfig struct {
	NaturalLanguage bool `yaml:"natural_language" json:"natural_language"`
	Structured      bool `yaml:"structured" json:"structured"`
	Boolean         bool `yaml:"boolean" json:"boolean"`
}

// ExpansionConfig controls query expansion before retrieval.
type ExpansionConfig struct {
	Synonyms      bool    `yaml:"synonyms" json:"synonyms"`
	Stemming      bool    `yaml:"stemming" json:"stemming"`
	Semantic      bool    `yaml:"semantic" json:"semantic"`
	MaxExpansions int     `yaml:"max_expansions" json:"max_expansions" validate:"gte=0"`
	Threshold     float64 `yaml:"threshold" json:"threshold" validate:"gte=0,lte=1"`
}

// RewritingConfig controls query rewriting.
type RewritingConfig struct {
	SpellCorrection bool `yaml:"spell_correction" json:"spell_correction"`
	IntentDetection bool `yaml:"intent_detection" json:"intent_detection"`
}

// QueryValidationConfig bounds incoming query text.
type QueryValidationConfig struct {
	MaxLength  int  `yaml:"max_length" json:"max_length" validate:"gte=0"`
	AllowEmpty bool `yaml:"allow_empty" json:"allow_empty"`
}

// QueryProcessingConfig is the query-interpretation side of a profile.
type QueryProcessingConfig struct {
	Parsing    ParsingConfig         `yaml:"parsing" json:"parsing"`
	Expansion  ExpansionConfig       `yaml:"expansion" json:"expansion"`
	Rewriting  RewritingConfig       `yaml:"rewriting" json:"rewriting"`
	Validation QueryValidationConfig `yaml:"validation" json:"validation"`
}

// RankingFactor is one named, weighted ranking signal. Weights are relative
// to each other; they are not normalized to sum to 1.
type RankingFactor struct {
	Name     string  `yaml:"name" json:"name" validate:"required"`
	Weight   float64 `yaml:"weight" json:"weight" validate:"gte=0"`
	Function string  `yaml:"function" json:"function,omitempty"`
	Enabled  bool    `yaml:"enabled" json:"enabled"`
}

// LTRConfig holds learning-to-rank settings.
type LTRConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Model   string `yaml:"model" json:"model,omitempty"`
}

// StaticBoost boosts documents with a fixed field value.
type StaticBoost struct {
	Field string  `yaml:"field" json:"field" validate:"required"`
	Value string  `yaml:"value" json:"value"`
	Boost float64 `yaml:"boost" json:"boost" validate:"gt=0"`
}

// DynamicBoost boosts by a function of a numeric or date field.
type DynamicBoost struct {
	Field    string  `yaml:"field" json:"field" validate:"required"`
	Function string  `yaml:"function" json:"function"`
	Factor   float64 `yaml:"factor" json:"factor"`
}

// NegativeBoost demotes documents with a fixed field value.
type NegativeBoost struct {
	Field   string  `yaml:"field" json:"field" validate:"required"`
	Value   string  `yaml:"value" json:"value"`
	Penalty float64 `yaml:"penalty" json:"penalty" validate:"gte=0,lte=1"`
}

// BoostConfig groups all boost rules.
type BoostConfig struct {
	Static   []StaticBoost   `yaml:"static" json:"static,omitempty" validate:"dive"`
	Dynamic  []DynamicBoost  `yaml:"dynamic" json:"dynamic,omitempty" validate:"dive"`
	Negative []NegativeBoost `yaml:"negative" json:"negative,omitempty" validate:"dive"`
}

// DiversificationConfig controls result-set diversification.
type DiversificationConfig struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	Algorithm     string   `yaml:"algorithm" json:"algorithm,omitempty"`
	MaxSimilarity float64  `yaml:"max_similarity" json:"max_similarity" validate:"gte=0,lte=1"`
	Fields        []string `yaml:"fields" json:"fields,omitempty"`
}

// RankingConfig is the ordering side of a profile.
type RankingConfig struct {
	Algorithm       RankAlgorithm         `yaml:"algorithm" json:"algorithm"`
	Factors         []RankingFactor       `yaml:"factors" json:"factors" validate:"dive"`
	LTR             LTRConfig             `yaml:"ltr" json:"ltr"`
	Boosts          BoostConfig           `yaml:"boosts" json:"boosts"`
	Diversification DiversificationConfig `yaml:"diversification" json:"diversification"`
}

// FacetDefinition declares one facet the backend should compute.
type FacetDefinition struct {
	Field string `yaml:"field" json:"field" validate:"required"`
	Type  string `yaml:"type" json:"type,omitempty"`
	Size  int    `yaml:"size" json:"size" validate:"gte=0"`
	Sort  string `yaml:"sort" json:"sort,omitempty" validate:"omitempty,oneof=count value"`
}

// FacetingConfig is the faceting side of a profile.
type FacetingConfig struct {
	Facets       []FacetDefinition `yaml:"facets" json:"facets,omitempty" validate:"dive"`
	Hierarchical bool              `yaml:"hierarchical" json:"hierarchical"`
	Statistical  bool              `yaml:"statistical" json:"statistical"`
	Dynamic      bool              `yaml:"dynamic" json:"dynamic"`
}

// HighlightingConfig holds default highlighting behavior.
type HighlightingConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	PreTag       string   `yaml:"pre_tag" json:"pre_tag,omitempty"`
	PostTag      string   `yaml:"post_tag" json:"post_tag,omitempty"`
	FragmentSize int      `yaml:"fragment_size" json:"fragment_size" validate:"gte=0"`
	MaxFragments int      `yaml:"max_fragments" json:"max_fragments" validate:"gte=0"`
	Fields       []string `yaml:"fields" json:"fields,omitempty"`
}

// AutocompleteConfig holds suggestion behavior.
type AutocompleteConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	MinChars       int  `yaml:"min_chars" json:"min_chars" validate:"gte=0"`
	MaxSuggestions int  `yaml:"max_suggestions" json:"max_suggestions" validate:"gte=0"`
	FuzzyTolerance int  `yaml:"fuzzy_tolerance" json:"fuzzy_tolerance" validate:"gte=0,lte=2"`
}

// AnalyticsConfig controls search/click tracking.
type AnalyticsConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	TrackQueries bool    `yaml:"track_queries" json:"track_queries"`
	TrackClicks  bool    `yaml:"track_clicks" json:"track_clicks"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
}

// PersonalizationConfig controls per-user ranking signals.
type PersonalizationConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	ProfileWeight float64 `yaml:"profile_weight" json:"profile_weight" validate:"gte=0"`
	HistoryWeight float64 `yaml:"history_weight" json:"history_weight" validate:"gte=0"`
	SocialWeight  float64 `yaml:"social_weight" json:"social_weight" validate:"gte=0"`
}

// Profile is a named, versioned bundle of all search settings. The same query
// text under two different profiles is two different requests; Signature
// captures that for cache keying.
type Profile struct {
	Name            string                `yaml:"name" json:"name" validate:"required"`
	Version         int                   `yaml:"version" json:"version"`
	Engine          EngineConfig          `yaml:"engine" json:"engine"`
	QueryProcessing QueryProcessingConfig `yaml:"query_processing" json:"query_processing"`
	Ranking         RankingConfig         `yaml:"ranking" json:"ranking"`
	Faceting        FacetingConfig        `yaml:"faceting" json:"faceting"`
	Highlighting    HighlightingConfig    `yaml:"highlighting" json:"highlighting"`
	Autocomplete    AutocompleteConfig    `yaml:"autocomplete" json:"autocomplete"`
	Analytics       AnalyticsConfig       `yaml:"analytics" json:"analytics"`
	Personalization PersonalizationConfig `yaml:"personalization" json:"personalization"`
}

// Signature returns a stable content hash of the profile. Any change to a
// setting that can alter ranking or faceting yields a new signature, which
// invalidates cached result pages keyed on it.
func (p *Profile) Signature() string {
	data, err := json.Marshal(p)
	if err != nil {
		return p.Name
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// EnabledFactors returns the ranking factors that are switched on.
func (r *RankingConfig) EnabledFactors() []RankingFactor {
	out := make([]RankingFactor, 0, len(r.Factors))
	for _, f := range r.Factors {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

// EnabledModels returns the semantic models that are switched on.
func (e *EngineConfig) EnabledModels() []SemanticModel {
	out := make([]SemanticModel, 0, len(e.Models))
	for _, m := range e.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}
