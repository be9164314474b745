package spell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker() *Checker {
	c := NewChecker()
	c.Observe("customer", "customer", "customer", "churn", "churn", "revenue", "lineage")
	return c
}

func TestChecker_Known(t *testing.T) {
	c := newTestChecker()
	assert.True(t, c.Known("customer"))
	assert.True(t, c.Known("CUSTOMER"), "lookup should be case-insensitive")
	assert.False(t, c.Known("custmer"))
}

func TestChecker_Suggest(t *testing.T) {
	c := newTestChecker()
	got := c.Suggest("custmer")
	require.NotEmpty(t, got)
	assert.Equal(t, "customer", got[0].Term)
	assert.Equal(t, 1, got[0].Distance)
}

func TestChecker_Suggest_prefersFrequentTerms(t *testing.T) {
	c := NewChecker()
	// Same distance from "chur", different frequencies.
	c.Observe("churn", "churn", "churn", "chub")
	got := c.Suggest("chur")
	require.NotEmpty(t, got)
	assert.Equal(t, "churn", got[0].Term)
}

func TestChecker_Suggest_respectsMaxDistance(t *testing.T) {
	c := NewChecker(WithMaxDistance(1))
	c.Observe("lineage")
	assert.Empty(t, c.Suggest("linxxge"), "3 edits away should be rejected at max distance 1")
}

func TestChecker_Check(t *testing.T) {
	c := newTestChecker()
	result := c.Check("custmer chrn")
	assert.True(t, result.HasCorrections)
	assert.Equal(t, "customer churn", result.CorrectedQuery)
	assert.Equal(t, []string{"custmer", "chrn"}, result.MisspelledTerms)
}

func TestChecker_Check_noCorrections(t *testing.T) {
	c := newTestChecker()
	result := c.Check("customer churn")
	assert.False(t, result.HasCorrections)
	assert.Equal(t, "customer churn", result.CorrectedQuery)
	assert.Empty(t, result.MisspelledTerms)
}

func TestChecker_Check_unknownTermWithoutCandidates(t *testing.T) {
	c := newTestChecker()
	result := c.Check("zzzzzzzzzz")
	assert.False(t, result.HasCorrections)
	assert.Equal(t, "zzzzzzzzzz", result.CorrectedQuery)
}

func TestChecker_Observe_splitsPhrases(t *testing.T) {
	c := NewChecker()
	c.Observe("Customer Churn Model")
	assert.Equal(t, 3, c.VocabularySize())
	assert.True(t, c.Known("churn"))
}
