package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBM25() *BM25Index {
	return NewBM25Index(DefaultBM25Config())
}

// BM25 search("rare") on docs [{d1,"common rare"}, {d2,"common common"},
// {d3,"common another"}] returns only d1.
func TestBM25Index_Search_OnlyMatchingDocReturned(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "common rare"))
	require.NoError(t, idx.AddDocument("d2", "common common"))
	require.NoError(t, idx.AddDocument("d3", "common another"))

	results := idx.Search([]string{"rare"}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DocID)
}

func TestBM25Index_Search_EmptyQueryReturnsEmpty(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "hello world"))
	results := idx.Search(nil, 10)
	assert.Empty(t, results)
}

func TestBM25Index_Search_UnknownTermContributesZero(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "hello world"))
	results := idx.Search([]string{"nonexistentterm"}, 10)
	assert.Empty(t, results)
}

func TestBM25Index_Search_TieBreaksOnDocIDAscending(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("zeta", "hello hello"))
	require.NoError(t, idx.AddDocument("alpha", "hello hello"))

	results := idx.Search([]string{"hello"}, 10)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
	assert.Equal(t, "alpha", results[0].DocID)
	assert.Equal(t, "zeta", results[1].DocID)
}

func TestBM25Index_Search_RespectsLimit(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "common term"))
	require.NoError(t, idx.AddDocument("d2", "common term"))
	require.NoError(t, idx.AddDocument("d3", "common term"))

	results := idx.Search([]string{"common"}, 2)
	assert.Len(t, results, 2)
}

// For any sequence of add/remove/update, (df, avgDocLength, totalDocs)
// equals a fresh rebuild from the current set.
func TestBM25Index_IncrementalEquivalenceToRebuild(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "alpha beta gamma"))
	require.NoError(t, idx.AddDocument("d2", "beta gamma delta"))
	require.NoError(t, idx.AddDocument("d3", "gamma delta epsilon"))
	idx.RemoveDocument("d2")
	require.NoError(t, idx.AddDocument("d4", "alpha delta zeta"))
	idx.UpdateDocument("d1", "alpha alpha beta")

	rebuilt := newTestBM25()
	require.NoError(t, rebuilt.AddDocument("d3", "gamma delta epsilon"))
	require.NoError(t, rebuilt.AddDocument("d4", "alpha delta zeta"))
	require.NoError(t, rebuilt.AddDocument("d1", "alpha alpha beta"))

	gotStats := idx.Stats()
	wantStats := rebuilt.Stats()
	assert.Equal(t, wantStats.DocumentCount, gotStats.DocumentCount)
	assert.Equal(t, wantStats.TermCount, gotStats.TermCount)
	assert.InDelta(t, wantStats.AverageDocLength, gotStats.AverageDocLength, 1e-9)
	assert.ElementsMatch(t, rebuilt.AllIDs(), idx.AllIDs())
}

func TestBM25Index_RemoveDocument_NoOpWhenAbsent(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "hello world"))
	idx.RemoveDocument("missing")
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

func TestBM25Index_UpdateDocument_ReplacesContent(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "alpha beta"))
	idx.UpdateDocument("d1", "gamma delta")

	results := idx.Search([]string{"alpha"}, 10)
	assert.Empty(t, results)

	results = idx.Search([]string{"gamma"}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DocID)
}

func TestBM25Index_UpdateDocument_WorksOnNewDocID(t *testing.T) {
	idx := newTestBM25()
	idx.UpdateDocument("d1", "alpha beta")

	results := idx.Search([]string{"alpha"}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].DocID)
}

func TestBM25Index_AddDocument_FailsOnExistingID(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "alpha"))
	err := idx.AddDocument("d1", "beta")
	require.Error(t, err)

	assert.Equal(t, 1, idx.Stats().DocumentCount)
	results := idx.Search([]string{"alpha"}, 10)
	require.Len(t, results, 1, "failed re-add must leave the original document untouched")
}

func TestBM25Index_SerializeDeserialize_PreservesStats(t *testing.T) {
	idx := newTestBM25()
	require.NoError(t, idx.AddDocument("d1", "alpha beta gamma"))
	require.NoError(t, idx.AddDocument("d2", "beta gamma delta"))

	data, err := idx.Serialize()
	require.NoError(t, err)

	restored, err := DeserializeBM25Index(data)
	require.NoError(t, err)

	assert.Equal(t, idx.Stats(), restored.Stats())
	assert.Equal(t, idx.AllIDs(), restored.AllIDs())

	want := idx.Search([]string{"beta"}, 10)
	got := restored.Search([]string{"beta"}, 10)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].DocID, got[i].DocID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestBM25Index_AllIDs_SortedAndEmpty(t *testing.T) {
	idx := newTestBM25()
	assert.Empty(t, idx.AllIDs())
	require.NoError(t, idx.AddDocument("zeta", "x"))
	require.NoError(t, idx.AddDocument("alpha", "y"))
	assert.Equal(t, []string{"alpha", "zeta"}, idx.AllIDs())
}
