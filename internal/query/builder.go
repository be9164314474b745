package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/profile"
	"github.com/hyperjump/kensaku/internal/spell"
)

// Builder assembles well-formed SearchQuery values from raw text, the
// previous query in the session, and the active profile.
type Builder struct {
	profile *profile.Profile
	checker *spell.Checker
}

// NewBuilder creates a builder for the given profile. The spell checker is
// optional; when nil, spell rewriting is skipped even if the profile asks
// for it.
func NewBuilder(p *profile.Profile, checker *spell.Checker) *Builder {
	if p == nil {
		p = profile.DefaultProfile()
	}
	return &Builder{profile: p, checker: checker}
}

// Profile returns the active profile.
func (b *Builder) Profile() *profile.Profile { return b.profile }

// SetProfile swaps the active profile (after a hot reload).
func (b *Builder) SetProfile(p *profile.Profile) {
	if p != nil {
		b.profile = p
	}
}

// Option overrides one aspect of a built query.
type Option func(*models.SearchQuery)

// WithType explicitly selects the query type, suppressing inference.
func WithType(t models.QueryType) Option {
	return func(q *models.SearchQuery) { q.Type = t }
}

// WithDeepPaging switches the query to cursor-based paging. The first deep
// request carries no cursor; subsequent pages must carry the previous
// response's search_after value.
func WithDeepPaging() Option {
	return func(q *models.SearchQuery) {
		q.Pagination.Deep = true
		q.Pagination.Offset = 0
	}
}

// WithUser attaches user and session identity to the query context.
func WithUser(userID, sessionID string) Option {
	return func(q *models.SearchQuery) {
		q.Context.UserID = userID
		q.Context.SessionID = sessionID
	}
}

// WithPersonalization attaches a personalization context.
func WithPersonalization(p *models.PersonalizationContext) Option {
	return func(q *models.SearchQuery) { q.Personalization = p }
}

// Build produces a fresh query for rawText. Filters, facet selections, and
// sort order carry over from prev (a new text does not reset the user's
// narrowing); pagination always resets to the first page. The query type
// defaults to HYBRID unless the text's shape demands structured handling or
// an option overrides it.
func (b *Builder) Build(rawText string, prev *models.SearchQuery, opts ...Option) (*models.SearchQuery, error) {
	rawText = strings.TrimSpace(rawText)
	maxLen := b.profile.QueryProcessing.Validation.MaxLength
	if maxLen > 0 && len(rawText) > maxLen {
		return nil, fmt.Errorf("query text exceeds %d characters", maxLen)
	}

	q := &models.SearchQuery{
		Text: rawText,
		Pagination: models.Pagination{
			Offset: 0,
			Limit:  models.DefaultLimit,
			Deep:   false,
		},
		Context: models.SearchContext{
			SessionID: uuid.NewString(),
			Timestamp: time.Now().UTC(),
		},
	}
	if prev != nil {
		p := prev.Clone()
		q.Filters = p.Filters
		q.FacetFilters = p.FacetFilters
		q.Sort = p.Sort
		q.Context = p.Context
		q.Context.Timestamp = time.Now().UTC()
		q.Context.Intent = nil
		q.Personalization = p.Personalization
	}

	q.Type = b.inferType(rawText)
	q.Highlight = b.highlightDefaults()

	for _, opt := range opts {
		opt(q)
	}

	if b.profile.QueryProcessing.Rewriting.SpellCorrection && b.checker != nil {
		if check := b.checker.Check(rawText); check.HasCorrections {
			// Attach the candidate; never silently rewrite the user's text.
			q.Context.Intent = &models.QueryIntent{
				Name:       "spell_correction",
				Confidence: confidenceFor(check),
				Entities:   []string{check.CorrectedQuery},
			}
		}
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// inferType maps the text's shape to a query type within what the profile's
// parsing config allows. The default is HYBRID.
func (b *Builder) inferType(rawText string) models.QueryType {
	parsing := b.profile.QueryProcessing.Parsing
	analyzed := Analyze(rawText)
	switch analyzed.Form {
	case FormWildcard, FormBoolean:
		if parsing.Boolean || parsing.Structured {
			return models.QueryStructured
		}
	case FormPhrase:
		if parsing.Structured {
			return models.QueryStructured
		}
	case FormMultiWord:
		// Question-shaped multi-word input is natural language when allowed.
		if parsing.NaturalLanguage && looksLikeQuestion(analyzed) {
			return models.QueryNaturalLanguage
		}
	}
	return models.QueryHybrid
}

var questionWords = map[string]bool{
	"who": true, "what": true, "where": true, "when": true,
	"why": true, "how": true, "which": true,
}

func looksLikeQuestion(a *Analyzed) bool {
	if len(a.Terms) < 3 {
		return false
	}
	return questionWords[a.Terms[0]]
}

func confidenceFor(check *spell.CheckResult) float64 {
	// One misspelled term is a strong signal; more misspellings dilute it.
	switch len(check.MisspelledTerms) {
	case 0:
		return 0
	case 1:
		return 0.9
	case 2:
		return 0.7
	default:
		return 0.5
	}
}

func (b *Builder) highlightDefaults() models.HighlightOptions {
	h := b.profile.Highlighting
	if !h.Enabled {
		return models.HighlightOptions{}
	}
	return models.HighlightOptions{
		Enabled:      true,
		Fields:       append([]string(nil), h.Fields...),
		FragmentSize: h.FragmentSize,
		MaxFragments: h.MaxFragments,
	}
}

// NextPage advances q to the page after resp. In offset mode the offset
// grows by the limit. In deep mode the response cursor is carried forward;
// falling back to offset arithmetic would silently hit the backend's deep
// paging cliff, so a missing cursor is an error instead.
func (b *Builder) NextPage(q *models.SearchQuery, resp *models.SearchResponse) (*models.SearchQuery, error) {
	next := q.Clone()
	if q.Pagination.Deep {
		if resp == nil || resp.SearchAfter == "" {
			return nil, fmt.Errorf("deep paging requires a cursor from the previous response")
		}
		next.Pagination.SearchAfter = resp.SearchAfter
		return next, nil
	}
	next.Pagination.Offset = q.Pagination.Offset + q.Pagination.Limit
	return next, nil
}

// ApplyFacetSelection replaces the facet filter for field with values, or
// removes it when values is empty. Within a field the operator defaults to
// OR (multi-select is inclusive); filters on distinct fields combine as AND.
// Idempotent: applying the same selection twice yields the same query.
func ApplyFacetSelection(q *models.SearchQuery, field string, values []string) *models.SearchQuery {
	next := q.Clone()
	filtered := next.FacetFilters[:0]
	for _, f := range next.FacetFilters {
		if f.Field != field {
			filtered = append(filtered, f)
		}
	}
	next.FacetFilters = filtered
	if len(values) > 0 {
		next.FacetFilters = append(next.FacetFilters, models.FacetFilter{
			Field:    field,
			Values:   append([]string(nil), values...),
			Operator: models.FacetOr,
		})
	}
	// Narrowing restarts paging from the first page.
	next.Pagination.Offset = 0
	next.Pagination.SearchAfter = ""
	return next
}

// ApplySort replaces the sort order. An empty sort restores backend ranking.
func ApplySort(q *models.SearchQuery, sort []models.SortOption) *models.SearchQuery {
	next := q.Clone()
	next.Sort = append([]models.SortOption(nil), sort...)
	next.Pagination.Offset = 0
	next.Pagination.SearchAfter = ""
	return next
}
