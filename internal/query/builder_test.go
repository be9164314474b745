package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/profile"
	"github.com/hyperjump/kensaku/internal/spell"
)

func newTestBuilder() *Builder {
	return NewBuilder(profile.DefaultProfile(), nil)
}

func TestBuilder_Build_defaults(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("customer churn", nil)
	require.NoError(t, err)

	assert.Equal(t, "customer churn", q.Text)
	assert.Equal(t, models.QueryHybrid, q.Type)
	assert.Equal(t, 0, q.Pagination.Offset)
	assert.Equal(t, 20, q.Pagination.Limit)
	assert.False(t, q.Pagination.Deep)
	assert.NotEmpty(t, q.Context.SessionID)
}

func TestBuilder_Build_explicitTypeWins(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("customer churn", nil, WithType(models.QuerySemantic))
	require.NoError(t, err)
	assert.Equal(t, models.QuerySemantic, q.Type)
}

func TestBuilder_Build_typeInference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.QueryType
	}{
		{"plain words default to hybrid", "sales pipeline", models.QueryHybrid},
		{"wildcard is structured", "cust*", models.QueryStructured},
		{"negation is structured", "churn -test", models.QueryStructured},
		{"boolean operator is structured", "churn AND retention", models.QueryStructured},
		{"quoted phrase is structured", `"monthly revenue"`, models.QueryStructured},
		{"question is natural language", "what tables track churn", models.QueryNaturalLanguage},
	}
	b := newTestBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := b.Build(tt.text, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Type)
		})
	}
}

func TestBuilder_Build_carriesNarrowingFromPrev(t *testing.T) {
	b := newTestBuilder()
	prev, err := b.Build("churn", nil)
	require.NoError(t, err)
	prev = ApplyFacetSelection(prev, "asset_type", []string{"table"})
	prev.Pagination.Offset = 40

	q, err := b.Build("churn model", prev)
	require.NoError(t, err)
	require.Len(t, q.FacetFilters, 1)
	assert.Equal(t, "asset_type", q.FacetFilters[0].Field)
	assert.Equal(t, 0, q.Pagination.Offset, "new text restarts paging")
	assert.Equal(t, prev.Context.SessionID, q.Context.SessionID, "session continues across text changes")
}

func TestBuilder_Build_rejectsOverlongText(t *testing.T) {
	p := profile.DefaultProfile()
	p.QueryProcessing.Validation.MaxLength = 10
	b := NewBuilder(p, nil)
	_, err := b.Build("this text is much too long", nil)
	assert.Error(t, err)
}

func TestBuilder_Build_spellCorrectionCandidate(t *testing.T) {
	checker := spell.NewChecker()
	checker.Observe("customer", "customer", "churn", "churn")
	b := NewBuilder(profile.DefaultProfile(), checker)

	q, err := b.Build("custmer churn", nil)
	require.NoError(t, err)
	assert.Equal(t, "custmer churn", q.Text, "user text must never be rewritten silently")
	require.NotNil(t, q.Context.Intent)
	assert.Equal(t, "spell_correction", q.Context.Intent.Name)
	assert.Equal(t, []string{"customer churn"}, q.Context.Intent.Entities)
	assert.InDelta(t, 0.9, q.Context.Intent.Confidence, 1e-9)
}

func TestBuilder_NextPage_offsetMode(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)

	next, err := b.NextPage(q, &models.SearchResponse{TotalCount: 100})
	require.NoError(t, err)
	assert.Equal(t, 20, next.Pagination.Offset)
	assert.Equal(t, 20, next.Pagination.Limit)

	third, err := b.NextPage(next, &models.SearchResponse{TotalCount: 100})
	require.NoError(t, err)
	assert.Equal(t, 40, third.Pagination.Offset)
}

func TestBuilder_NextPage_deepModeCarriesCursor(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil, WithDeepPaging())
	require.NoError(t, err)
	require.True(t, q.Pagination.Deep)

	next, err := b.NextPage(q, &models.SearchResponse{SearchAfter: "cursor-abc"})
	require.NoError(t, err)
	assert.Equal(t, "cursor-abc", next.Pagination.SearchAfter)
	assert.Equal(t, 0, next.Pagination.Offset, "deep mode never falls back to offset arithmetic")
	assert.True(t, next.Pagination.Deep)
}

func TestBuilder_NextPage_deepModeMissingCursor(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil, WithDeepPaging())
	require.NoError(t, err)

	_, err = b.NextPage(q, &models.SearchResponse{})
	assert.Error(t, err, "a missing cursor must not silently degrade to offset paging")
}

func TestApplyFacetSelection_setAndReplace(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)

	q1 := ApplyFacetSelection(q, "asset_type", []string{"table", "view"})
	require.Len(t, q1.FacetFilters, 1)
	assert.Equal(t, models.FacetOr, q1.FacetFilters[0].Operator)
	assert.Equal(t, []string{"table", "view"}, q1.FacetFilters[0].Values)

	q2 := ApplyFacetSelection(q1, "asset_type", []string{"dashboard"})
	require.Len(t, q2.FacetFilters, 1)
	assert.Equal(t, []string{"dashboard"}, q2.FacetFilters[0].Values)
}

func TestApplyFacetSelection_idempotent(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)

	once := ApplyFacetSelection(q, "owner", []string{"core-data"})
	twice := ApplyFacetSelection(once, "owner", []string{"core-data"})
	assert.Equal(t, once.FacetFilters, twice.FacetFilters)
	assert.Equal(t, once.Pagination, twice.Pagination)
}

func TestApplyFacetSelection_emptyClearsFilter(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)

	q1 := ApplyFacetSelection(q, "owner", []string{"core-data"})
	q2 := ApplyFacetSelection(q1, "owner", nil)
	assert.Empty(t, q2.FacetFilters)
}

func TestApplyFacetSelection_distinctFieldsAccumulate(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)

	q1 := ApplyFacetSelection(q, "asset_type", []string{"table"})
	q2 := ApplyFacetSelection(q1, "owner", []string{"core-data"})
	assert.Len(t, q2.FacetFilters, 2)
}

func TestApplyFacetSelection_doesNotMutateInput(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)
	q.Pagination.Offset = 20

	_ = ApplyFacetSelection(q, "owner", []string{"core-data"})
	assert.Empty(t, q.FacetFilters)
	assert.Equal(t, 20, q.Pagination.Offset)
}

func TestApplySort(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Build("churn", nil)
	require.NoError(t, err)
	q.Pagination.Offset = 60

	sorted := ApplySort(q, []models.SortOption{{Field: "updated_at", Direction: models.SortDesc}})
	require.Len(t, sorted.Sort, 1)
	assert.Equal(t, 0, sorted.Pagination.Offset, "sort change restarts paging")

	cleared := ApplySort(sorted, nil)
	assert.Empty(t, cleared.Sort)
}
