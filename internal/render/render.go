// Package render turns ranked results into a display model: confidence
// bands, truncated snippets, and sanitized highlight fragments.
package render

import (
	"github.com/microcosm-cc/bluemonday"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// ConfidenceBand groups scores into display bands.
type ConfidenceBand string

const (
	BandHigh    ConfidenceBand = "high"
	BandMedium  ConfidenceBand = "medium"
	BandLow     ConfidenceBand = "low"
	BandMinimal ConfidenceBand = "minimal"
)

// BandForScore maps a score to its confidence band.
func BandForScore(score float64) ConfidenceBand {
	switch {
	case score >= 0.9:
		return BandHigh
	case score >= 0.7:
		return BandMedium
	case score >= 0.5:
		return BandLow
	default:
		return BandMinimal
	}
}

// DisplayResult is one result prepared for display. Highlight fragments have
// been sanitized down to text plus <mark> tags; everything else is stripped.
type DisplayResult struct {
	ID          string                       `json:"id"`
	Asset       models.AssetRef              `json:"asset"`
	Score       float64                      `json:"score"`
	Band        ConfidenceBand               `json:"band"`
	Highlights  map[string][]string          `json:"highlights,omitempty"`
	Explanation *models.ScoreExplanation     `json:"explanation,omitempty"`
	Related     []string                     `json:"related,omitempty"`
	Personal    *models.PersonalizationScore `json:"personalization,omitempty"`
}

// DisplayModel is one rendered results page.
type DisplayModel struct {
	Query      string           `json:"query"`
	Results    []*DisplayResult `json:"results"`
	TotalCount int              `json:"total_count"`
	// Empty is true for a zero-hit page: a valid, displayable state, not an
	// error.
	Empty bool `json:"empty"`
}

// Renderer builds display models from backend responses. It never reorders
// results; backend ordering is authoritative.
type Renderer struct {
	policy     *bluemonday.Policy
	maxSnippet int
}

// NewRenderer creates a renderer. Backend highlight fragments may contain
// markup; the sanitizer admits only <mark> and </mark> and strips every
// other tag and attribute, so a compromised or buggy backend cannot inject
// script through highlights.
func NewRenderer(maxSnippetLen int) *Renderer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("mark")
	return &Renderer{policy: policy, maxSnippet: maxSnippetLen}
}

// Render prepares one results page for display.
func (r *Renderer) Render(resp *models.SearchResponse, q *models.SearchQuery) *DisplayModel {
	model := &DisplayModel{
		Query:      q.Text,
		Results:    make([]*DisplayResult, 0, len(resp.Results)),
		TotalCount: resp.TotalCount,
		Empty:      len(resp.Results) == 0,
	}
	for _, res := range resp.Results {
		model.Results = append(model.Results, r.renderOne(res))
	}
	return model
}

func (r *Renderer) renderOne(res *models.SearchResult) *DisplayResult {
	out := &DisplayResult{
		ID:          res.ID,
		Asset:       res.Asset,
		Score:       utils.Clamp01(res.Score),
		Band:        BandForScore(res.Score),
		Explanation: res.Explanation,
		Related:     res.Related,
		Personal:    res.Personalization,
	}
	if len(res.Highlights) > 0 {
		out.Highlights = make(map[string][]string, len(res.Highlights))
		for field, fragments := range res.Highlights {
			clean := make([]string, 0, len(fragments))
			for _, frag := range fragments {
				clean = append(clean, utils.Truncate(r.policy.Sanitize(frag), r.maxSnippet))
			}
			out.Highlights[field] = clean
		}
	}
	return out
}
