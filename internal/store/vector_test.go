package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1.0
	return v
}

func newTestVectorStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: dims, Model: "test-model"})
	require.NoError(t, err)
	return s
}

func TestHNSWStore_AddAndSearch_ReturnsNearestByCosine(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{
		unitVec(4, 0),
		unitVec(4, 1),
	}))

	results, err := s.Search(ctx, unitVec(4, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWStore_Add_DimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, 4)
	err := s.Add(context.Background(), []string{"a"}, [][]float32{{1, 2, 3}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
}

func TestHNSWStore_Search_DimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, 4)
	_, err := s.Search(context.Background(), []float32{1, 2}, 1)
	require.Error(t, err)
}

func TestHNSWStore_Search_EmptyStoreReturnsEmpty(t *testing.T) {
	s := newTestVectorStore(t, 4)
	results, err := s.Search(context.Background(), unitVec(4, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_Delete_RemovesFromResultsAndContains(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{unitVec(4, 0)}))
	assert.True(t, s.Contains("a"))

	require.NoError(t, s.Delete(ctx, []string{"a"}))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, len(s.AllIDs()))
}

func TestHNSWStore_Add_ReaddingSameIDReplaces(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{unitVec(4, 0)}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{unitVec(4, 1)}))
	assert.Equal(t, 1, s.Count())
}

func TestHNSWStore_Count(t *testing.T) {
	s := newTestVectorStore(t, 4)
	assert.Equal(t, 0, s.Count())
	require.NoError(t, s.Add(context.Background(), []string{"a", "b"}, [][]float32{unitVec(4, 0), unitVec(4, 1)}))
	assert.Equal(t, 2, s.Count())
}

func TestHNSWStore_Close_RejectsFurtherOperations(t *testing.T) {
	s := newTestVectorStore(t, 4)
	require.NoError(t, s.Close())
	err := s.Add(context.Background(), []string{"a"}, [][]float32{unitVec(4, 0)})
	assert.Error(t, err)
}

func TestHNSWStore_SaveLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s := newTestVectorStore(t, 4)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{unitVec(4, 0), unitVec(4, 1)}))
	require.NoError(t, s.Save(path))

	loaded := newTestVectorStore(t, 4)
	require.NoError(t, loaded.Load(path))

	assert.ElementsMatch(t, s.AllIDs(), loaded.AllIDs())
}

func TestReadHNSWStoreDimensions_FreshStartReturnsZero(t *testing.T) {
	dims, err := ReadHNSWStoreDimensions(filepath.Join(t.TempDir(), "nope.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}

func TestReadHNSWStoreDimensions_ReadsPersistedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s := newTestVectorStore(t, 8)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{unitVec(8, 0)}))
	require.NoError(t, s.Save(path))

	dims, err := ReadHNSWStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 8, dims)
}
