// Package query builds well-formed search queries from raw user input and
// the active search profile: text analysis, debouncing, defaults, pagination,
// and facet/sort interactions.
package query

import (
	"regexp"
	"strings"
	"unicode"
)

// Form classifies the raw shape of a query string.
type Form int

const (
	// FormSingleWord is a single word query.
	FormSingleWord Form = iota
	// FormMultiWord is a multi-word query without quotes or operators.
	FormMultiWord
	// FormPhrase is a quoted exact phrase query.
	FormPhrase
	// FormWildcard is a query containing wildcards (* or ?).
	FormWildcard
	// FormBoolean is a query with boolean operators (AND/OR/NOT/-).
	FormBoolean
)

// String returns a string representation of the form.
func (f Form) String() string {
	switch f {
	case FormSingleWord:
		return "single_word"
	case FormMultiWord:
		return "multi_word"
	case FormPhrase:
		return "phrase"
	case FormWildcard:
		return "wildcard"
	case FormBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Analyzed holds the parsed form of a query string.
type Analyzed struct {
	// Original is the original query string.
	Original string
	// Terms are the individual normalized tokens from the query.
	Terms []string
	// Phrases are exact phrases extracted from quoted strings.
	Phrases []string
	// NegatedTerms are terms that should be excluded (NOT / leading -).
	NegatedTerms []string
	// Form is the classified shape of the query.
	Form Form
	// HasWildcard indicates wildcard characters in the query.
	HasWildcard bool
	// HasOperator indicates explicit uppercase AND/OR operators.
	HasOperator bool
}

var phraseRegex = regexp.MustCompile(`["']([^"']+)["']`)

// Analyze parses a query string into terms, phrases, and negations, and
// classifies its form.
func Analyze(raw string) *Analyzed {
	result := &Analyzed{
		Original:     raw,
		Terms:        []string{},
		Phrases:      []string{},
		NegatedTerms: []string{},
	}
	result.HasWildcard = strings.ContainsAny(raw, "*?")

	remaining := extractPhrases(raw, result)
	extractTerms(remaining, result)
	result.Form = classify(result)
	return result
}

// extractPhrases pulls quoted phrases out of the query.
// Returns the query with phrases removed.
func extractPhrases(raw string, result *Analyzed) string {
	matches := phraseRegex.FindAllStringSubmatch(raw, -1)
	for _, match := range matches {
		if len(match) > 1 {
			phrase := strings.TrimSpace(match[1])
			if phrase != "" {
				result.Phrases = append(result.Phrases, strings.ToLower(phrase))
			}
		}
	}
	return phraseRegex.ReplaceAllString(raw, " ")
}

func extractTerms(remaining string, result *Analyzed) {
	for _, word := range strings.Fields(remaining) {
		if strings.HasPrefix(word, "-") {
			negated := normalizeToken(strings.TrimPrefix(word, "-"))
			if negated != "" {
				result.NegatedTerms = append(result.NegatedTerms, negated)
			}
			continue
		}
		if strings.EqualFold(word, "NOT") {
			continue
		}
		if word == "AND" || word == "OR" {
			result.HasOperator = true
			continue
		}
		if strings.EqualFold(word, "AND") || strings.EqualFold(word, "OR") {
			continue
		}
		normalized := normalizeToken(word)
		if normalized != "" {
			result.Terms = append(result.Terms, normalized)
		}
	}
}

// normalizeToken lowercases and trims edge punctuation, keeping internal
// hyphens and underscores.
func normalizeToken(token string) string {
	token = strings.ToLower(token)
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

func classify(result *Analyzed) Form {
	if result.HasWildcard {
		return FormWildcard
	}
	if len(result.NegatedTerms) > 0 || result.HasOperator {
		return FormBoolean
	}
	if len(result.Phrases) > 0 {
		return FormPhrase
	}
	if len(result.Terms) <= 1 {
		return FormSingleWord
	}
	return FormMultiWord
}
