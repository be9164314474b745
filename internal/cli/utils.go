// Package cli provides CLI utilities for Kensaku.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kensaku/internal/render"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes a rendered results page to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, model *render.DisplayModel, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	case OutputCompact:
		writeSearchResultsCompact(w, model)
		return nil
	default:
		writeSearchResultsText(w, model)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, model *render.DisplayModel) {
	if model.Empty {
		fmt.Fprintf(w, "\nNo results for %q\n", model.Query)
		return
	}
	fmt.Fprintf(w, "\nFound %d results for %q (showing %d)\n\n",
		model.TotalCount, model.Query, len(model.Results))
	for i, result := range model.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, result *render.DisplayResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Confidence: %s\n", rank, result.Score, result.Band)
	fmt.Fprintf(w, "ID: %s\n", result.Asset.ID)
	if result.Asset.Name != "" {
		fmt.Fprintf(w, "Name: %s (%s)\n", result.Asset.Name, result.Asset.Type)
	}
	for field, fragments := range result.Highlights {
		fmt.Fprintf(w, "\n%s: %s\n", field, utils.Truncate(stripMarks(strings.Join(fragments, " … ")), 200))
	}
	fmt.Fprintln(w)
}

func writeSearchResultsCompact(w io.Writer, model *render.DisplayModel) {
	for i, result := range model.Results {
		name := result.Asset.Name
		if name == "" {
			name = result.Asset.ID
		}
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", i+1, result.Score, result.Band, name)
	}
}

// stripMarks removes highlight tags for plain-terminal output.
func stripMarks(s string) string {
	s = strings.ReplaceAll(s, "<mark>", "")
	return strings.ReplaceAll(s, "</mark>", "")
}
