package spell

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is one correction candidate with its ranking score.
type Suggestion struct {
	Term      string  // the suggested term
	Distance  int     // edit distance from the original term
	Frequency int     // how often the term occurs in the vocabulary
	Score     float64 // combined score for ranking
}

// CheckResult contains the result of spell checking a query.
type CheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// Checker finds correction candidates in a term vocabulary. The vocabulary is
// fed incrementally from suggestion and result traffic, so it reflects the
// catalog's actual field values rather than a fixed word list.
type Checker struct {
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu    sync.RWMutex
	freq  map[string]int
	terms []string
	dirty bool
}

// CheckerOption is a functional option for configuring Checker.
type CheckerOption func(*Checker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum vocabulary frequency for suggestions.
// Rarer terms are ignored (likely noise).
func WithMinFrequency(f int) CheckerOption {
	return func(c *Checker) {
		if f >= 0 {
			c.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) CheckerOption {
	return func(c *Checker) {
		if n > 0 {
			c.maxSuggestions = n
		}
	}
}

// NewChecker creates a Checker with an empty vocabulary.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		freq:           make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe adds terms to the vocabulary, incrementing their frequencies.
// Multi-word phrases are split into words.
func (c *Checker) Observe(terms ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range terms {
		for _, w := range strings.Fields(strings.ToLower(t)) {
			c.freq[w]++
		}
	}
	c.dirty = true
}

// VocabularySize returns the number of distinct known terms.
func (c *Checker) VocabularySize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.freq)
}

func (c *Checker) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		c.terms = make([]string, 0, len(c.freq))
		for t := range c.freq {
			c.terms = append(c.terms, t)
		}
		sort.Strings(c.terms)
		c.dirty = false
	}
	return c.terms
}

// Known reports whether term exists in the vocabulary.
func (c *Checker) Known(term string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.freq[strings.ToLower(term)]
	return ok
}

// Suggest returns correction candidates for a single term, best first.
func (c *Checker) Suggest(term string) []Suggestion {
	termLower := strings.ToLower(term)
	terms := c.snapshot()

	var suggestions []Suggestion
	for _, dictTerm := range terms {
		if dictTerm == termLower {
			continue
		}
		// Length pre-filter: strings further apart than maxDistance in
		// length cannot be within that edit distance.
		lenDiff := len(dictTerm) - len(termLower)
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > c.maxDistance {
			continue
		}
		distance := TransposeDistance(termLower, dictTerm)
		if distance > c.maxDistance {
			continue
		}
		c.mu.RLock()
		freq := c.freq[dictTerm]
		c.mu.RUnlock()
		if freq < c.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     (1.0 / float64(distance+1)) * float64(freq),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > c.maxSuggestions {
		suggestions = suggestions[:c.maxSuggestions]
	}
	return suggestions
}

// Check checks every term of query and assembles a corrected candidate.
// Terms without suggestions are kept as-is; the corrected query is only a
// candidate, never silently substituted for the user's input.
func (c *Checker) Check(query string) *CheckResult {
	result := &CheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}
	terms := strings.Fields(query)
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		if c.Known(term) {
			corrected = append(corrected, term)
			continue
		}
		suggestions := c.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result
}
