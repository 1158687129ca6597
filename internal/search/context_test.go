package search

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
)

func result(path, chunk string, score float64) SearchResult {
	return SearchResult{FilePath: path, Score: score, Chunk: chunk, Metadata: map[string]any{}}
}

// ============================================================================
// packContext
// ============================================================================

func TestPackContext_AllFit(t *testing.T) {
	results := []SearchResult{result("a.md", "alpha", 0.9), result("dir/b.md", "beta", 0.8)}

	ctx, sources := packContext(results, 1000)

	assert.Equal(t, "## a.md\n\nalpha\n\n---\n\n## dir/b.md\n\nbeta", ctx)
	require.Len(t, sources, 2)
	assert.Equal(t, 5, sources[0].CharCount)
	assert.Equal(t, 4, sources[1].CharCount)
	assert.Equal(t, "b.md", sources[1].FileName)
	assert.Equal(t, 0.8, sources[1].RelevanceScore)
	assert.NotContains(t, ctx, truncationMarker)
}

func TestPackContext_FirstSourceTruncatedToSmallBudget(t *testing.T) {
	// Given: a first chunk far larger than the budget
	long := strings.Repeat("x", 300)

	// When: packing with maxChars=50
	ctx, sources := packContext([]SearchResult{result("a.md", long, 0.9), result("b.md", "short", 0.8)}, 50)

	// Then: only the first source, cut to 50 chars plus a marker
	require.Len(t, sources, 1)
	assert.Equal(t, 50, sources[0].CharCount)
	assert.Equal(t, "## a.md\n\n"+strings.Repeat("x", 50)+"...", ctx)
}

func TestPackContext_LaterOverflowTruncatedWhenRoomRemains(t *testing.T) {
	first := strings.Repeat("a", 200)
	second := strings.Repeat("b", 500)

	ctx, sources := packContext([]SearchResult{result("a.md", first, 0.9), result("b.md", second, 0.8)}, 400)

	require.Len(t, sources, 2)
	assert.Equal(t, 200, sources[0].CharCount)
	assert.Equal(t, 200, sources[1].CharCount)
	assert.True(t, strings.HasSuffix(ctx, strings.Repeat("b", 200)+"..."))
}

func TestPackContext_LaterOverflowDroppedWhenLittleRoomRemains(t *testing.T) {
	first := strings.Repeat("a", 350)
	second := strings.Repeat("b", 500)
	third := "tiny"

	ctx, sources := packContext([]SearchResult{
		result("a.md", first, 0.9), result("b.md", second, 0.8), result("c.md", third, 0.7),
	}, 400)

	// 50 chars remain after the first source, so packing stops.
	require.Len(t, sources, 1)
	assert.Equal(t, "## a.md\n\n"+first, ctx)
}

func TestPackContext_CountsRunes(t *testing.T) {
	chunk := strings.Repeat("é", 30)

	ctx, sources := packContext([]SearchResult{result("a.md", chunk, 0.9)}, 10)

	require.Len(t, sources, 1)
	assert.Equal(t, 10, sources[0].CharCount)
	assert.True(t, utf8.ValidString(ctx))
	assert.True(t, strings.HasSuffix(ctx, strings.Repeat("é", 10)+"..."))
}

func TestPackContext_BudgetBound(t *testing.T) {
	results := []SearchResult{
		result("a.md", strings.Repeat("a", 120), 0.9),
		result("b.md", strings.Repeat("b", 340), 0.8),
		result("c.md", strings.Repeat("c", 75), 0.7),
		result("d.md", strings.Repeat("d", 900), 0.6),
	}

	for _, maxChars := range []int{50, 100, 150, 300, 460, 600, 2000} {
		_, sources := packContext(results, maxChars)

		total := 0
		for i, s := range sources {
			total += s.CharCount
			// A truncated trailing source after the first always carries more than 100 chars.
			if i > 0 && s.CharCount < utf8.RuneCountInString(results[i].Chunk) {
				assert.Greater(t, s.CharCount, minTruncatedChars)
			}
		}
		assert.LessOrEqual(t, total, maxChars, "maxChars=%d", maxChars)
	}
}

// ============================================================================
// BuildContext
// ============================================================================

func TestBuildContext_PacksSearchResults(t *testing.T) {
	r := newTestRetriever(t, petNotes...)
	agg := NewContextAggregator(r, 0.0)

	resp, err := agg.BuildContext(context.Background(), petNotes[0].text, 10000, 3)

	require.NoError(t, err)
	require.Equal(t, StatusSuccess, resp.Status, resp.Error)
	require.NotEmpty(t, resp.Sources)
	assert.LessOrEqual(t, len(resp.Sources), 3)
	assert.Equal(t, "cats.md", resp.Sources[0].FilePath)
	assert.Equal(t, "cats.md", resp.Sources[0].FileName)
	assert.True(t, strings.HasPrefix(resp.Context, "## cats.md\n\n"+petNotes[0].text))
	assert.Equal(t, utf8.RuneCountInString(resp.Context), resp.ContextLength)
}

func TestBuildContext_NoResultsIsError(t *testing.T) {
	r := newTestRetriever(t, petNotes...)
	agg := NewContextAggregator(r, 0.99)

	resp, err := agg.BuildContext(context.Background(), "quantum chromodynamics lattice", 1000, 5)

	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, MsgNoContext, resp.Error)
	assert.Empty(t, resp.Context)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, resp.ContextLength)
}

func TestBuildContext_MissingCollectionPropagates(t *testing.T) {
	st, e := seedStore(t)
	r, err := NewRetriever(st, e, "other-vault")
	require.NoError(t, err)

	_, err = NewContextAggregator(r, 0.3).BuildContext(context.Background(), "cats", 1000, 5)

	assert.True(t, oerrors.IsCode(err, oerrors.ErrCodeCollectionNotFound))
}

func TestBuildContext_InvalidMaxChars(t *testing.T) {
	r := newTestRetriever(t, petNotes...)

	resp, err := NewContextAggregator(r, 0.0).BuildContext(context.Background(), "cats", 0, 5)

	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, oerrors.ErrCodeInvalidInput)
}
