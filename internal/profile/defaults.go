package profile

// DefaultProfile returns the built-in catalog search profile. It is valid by
// construction and used whenever no profile directory is configured.
func DefaultProfile() *Profile {
	return &Profile{
		Name:    "default",
		Version: 1,
		Engine: EngineConfig{
			Algorithm: AlgorithmHybrid,
			IndexFields: []IndexField{
				{Name: "name", Weight: 3.0, Analyzer: "standard", Searchable: true, Sortable: true, Highlightable: true},
				{Name: "description", Weight: 1.5, Analyzer: "standard", Searchable: true, Highlightable: true, Semantic: true},
				{Name: "tags", Weight: 2.0, Analyzer: "keyword", Searchable: true, Facetable: true},
				{Name: "owner", Weight: 1.0, Analyzer: "keyword", Searchable: true, Facetable: true, Sortable: true},
				{Name: "asset_type", Weight: 1.0, Analyzer: "keyword", Facetable: true},
			},
			Models: []SemanticModel{
				{Name: "all-MiniLM-L6-v2", Dimensions: 384, Enabled: true},
			},
			Embedding: EmbeddingConfig{Dimensions: 384, BatchSize: 32, CacheSize: 10000},
			Fuzzy:     FuzzyConfig{Enabled: true, MaxEdits: 2, PrefixLength: 1, MinTermLength: 4},
			Stemming:  StemmingConfig{Enabled: true, Language: "en"},
			StopWords: StopWordConfig{Enabled: true},
		},
		QueryProcessing: QueryProcessingConfig{
			Parsing:    ParsingConfig{NaturalLanguage: true, Structured: true, Boolean: true},
			Expansion:  ExpansionConfig{Synonyms: true, Stemming: true, MaxExpansions: 5, Threshold: 0.7},
			Rewriting:  RewritingConfig{SpellCorrection: true, IntentDetection: true},
			Validation: QueryValidationConfig{MaxLength: 512},
		},
		Ranking: RankingConfig{
			Algorithm: RankWeightedSum,
			Factors: []RankingFactor{
				{Name: "relevance", Weight: 1.0, Function: "linear", Enabled: true},
				{Name: "freshness", Weight: 0.3, Function: "decay", Enabled: true},
				{Name: "popularity", Weight: 0.2, Function: "log", Enabled: true},
				{Name: "authority", Weight: 0.2, Function: "linear", Enabled: false},
			},
			Diversification: DiversificationConfig{MaxSimilarity: 0.9},
		},
		Faceting: FacetingConfig{
			Facets: []FacetDefinition{
				{Field: "asset_type", Type: "terms", Size: 10, Sort: "count"},
				{Field: "owner", Type: "terms", Size: 10, Sort: "count"},
				{Field: "tags", Type: "terms", Size: 20, Sort: "count"},
			},
		},
		Highlighting: HighlightingConfig{
			Enabled:      true,
			PreTag:       "<mark>",
			PostTag:      "</mark>",
			FragmentSize: 150,
			MaxFragments: 3,
			Fields:       []string{"name", "description"},
		},
		Autocomplete: AutocompleteConfig{Enabled: true, MinChars: 2, MaxSuggestions: 8, FuzzyTolerance: 1},
		Analytics:    AnalyticsConfig{Enabled: true, TrackQueries: true, TrackClicks: true, SampleRate: 1.0},
		Personalization: PersonalizationConfig{
			Enabled:       true,
			ProfileWeight: 0.5,
			HistoryWeight: 0.3,
			SocialWeight:  0.2,
		},
	}
}

// ApplyDefaults fills zero values in p with the built-in defaults. Boolean
// toggles are left as given; only sizes, tags, and weights are defaulted.
func ApplyDefaults(p *Profile) {
	d := DefaultProfile()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Engine.Algorithm == "" {
		p.Engine.Algorithm = d.Engine.Algorithm
	}
	if len(p.Engine.IndexFields) == 0 {
		p.Engine.IndexFields = d.Engine.IndexFields
	}
	if p.Engine.Embedding.CacheSize == 0 {
		p.Engine.Embedding.CacheSize = d.Engine.Embedding.CacheSize
	}
	if p.Engine.Fuzzy.Enabled && p.Engine.Fuzzy.MaxEdits == 0 {
		p.Engine.Fuzzy.MaxEdits = d.Engine.Fuzzy.MaxEdits
	}
	if p.Engine.Fuzzy.MinTermLength == 0 {
		p.Engine.Fuzzy.MinTermLength = d.Engine.Fuzzy.MinTermLength
	}
	if p.QueryProcessing.Expansion.MaxExpansions == 0 {
		p.QueryProcessing.Expansion.MaxExpansions = d.QueryProcessing.Expansion.MaxExpansions
	}
	if p.QueryProcessing.Expansion.Threshold == 0 {
		p.QueryProcessing.Expansion.Threshold = d.QueryProcessing.Expansion.Threshold
	}
	if p.QueryProcessing.Validation.MaxLength == 0 {
		p.QueryProcessing.Validation.MaxLength = d.QueryProcessing.Validation.MaxLength
	}
	if p.Ranking.Algorithm == "" {
		p.Ranking.Algorithm = d.Ranking.Algorithm
	}
	if len(p.Ranking.Factors) == 0 {
		p.Ranking.Factors = d.Ranking.Factors
	}
	if p.Ranking.Diversification.MaxSimilarity == 0 {
		p.Ranking.Diversification.MaxSimilarity = d.Ranking.Diversification.MaxSimilarity
	}
	if p.Highlighting.PreTag == "" {
		p.Highlighting.PreTag = d.Highlighting.PreTag
	}
	if p.Highlighting.PostTag == "" {
		p.Highlighting.PostTag = d.Highlighting.PostTag
	}
	if p.Highlighting.FragmentSize == 0 {
		p.Highlighting.FragmentSize = d.Highlighting.FragmentSize
	}
	if p.Highlighting.MaxFragments == 0 {
		p.Highlighting.MaxFragments = d.Highlighting.MaxFragments
	}
	if p.Autocomplete.MinChars == 0 {
		p.Autocomplete.MinChars = d.Autocomplete.MinChars
	}
	if p.Autocomplete.MaxSuggestions == 0 {
		p.Autocomplete.MaxSuggestions = d.Autocomplete.MaxSuggestions
	}
	if p.Analytics.Enabled && p.Analytics.SampleRate == 0 {
		p.Analytics.SampleRate = d.Analytics.SampleRate
	}
}
