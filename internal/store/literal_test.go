package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralIndex_ExactAndCaseInsensitiveLookup(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	err = idx.AddLiterals("auth.go", []ExtractedLiteral{
		{Value: "createSession", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c1", FilePath: "auth.go", Vocabulary: []string{"create", "session"}},
	})
	require.NoError(t, err)

	exact := idx.LookupExact("createSession")
	require.Len(t, exact, 1)
	assert.Equal(t, "createSession", exact[0].Value)

	assert.Empty(t, idx.LookupExact("createsession"))

	ci := idx.LookupCaseInsensitive("CREATESESSION")
	require.Len(t, ci, 1)
	assert.Equal(t, "createSession", ci[0].Value)
}

func TestLiteralIndex_PrefixLookup(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	require.NoError(t, idx.AddLiterals("svc.go", []ExtractedLiteral{
		{Value: "getUserById", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c1", FilePath: "svc.go"},
		{Value: "getUserByEmail", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c2", FilePath: "svc.go"},
		{Value: "deleteUser", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c3", FilePath: "svc.go"},
	}))

	matches := idx.LookupPrefix("getUser")
	assert.Len(t, matches, 2)
}

func TestLiteralIndex_VocabularyLookup(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	require.NoError(t, idx.AddLiterals("svc.go", []ExtractedLiteral{
		{Value: "getUserById", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c1", FilePath: "svc.go", Vocabulary: []string{"get", "user", "by", "id"}},
	}))

	matches := idx.LookupVocabulary("user")
	require.Len(t, matches, 1)
	assert.Equal(t, "getUserById", matches[0].Value)

	assert.Empty(t, idx.LookupVocabulary("nonexistent"))
}

func TestLiteralIndex_RemoveFile_PurgesOnlyThatFilesPostings(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	require.NoError(t, idx.AddLiterals("a.go", []ExtractedLiteral{
		{Value: "shared", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "a1", FilePath: "a.go"},
	}))
	require.NoError(t, idx.AddLiterals("b.go", []ExtractedLiteral{
		{Value: "shared", Type: LiteralFunctionName, MatchType: MatchReference, ChunkID: "b1", FilePath: "b.go"},
	}))

	require.NoError(t, idx.RemoveFile("a.go"))

	remaining := idx.LookupExact("shared")
	require.Len(t, remaining, 1)
	assert.Equal(t, "b.go", remaining[0].FilePath)
}

func TestLiteralIndex_RemoveFile_UnknownFileIsNoOp(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)
	assert.NoError(t, idx.RemoveFile("never-added.go"))
}

func TestLiteralIndex_AddLiterals_EmptyIsNoOp(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)
	assert.NoError(t, idx.AddLiterals("a.go", nil))
	assert.Empty(t, idx.LookupExact("anything"))
}

func TestLiteralIndex_SubstringLookup(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	require.NoError(t, idx.AddLiterals("svc.go", []ExtractedLiteral{
		{Value: "getUserById", Type: LiteralFunctionName, MatchType: MatchDefinition, ChunkID: "c1", FilePath: "svc.go"},
	}))

	matches, err := idx.LookupSubstring("UserById", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestLiteralIndex_SubstringLookup_EmptyQuery(t *testing.T) {
	idx, err := NewLiteralIndex()
	require.NoError(t, err)

	matches, err := idx.LookupSubstring("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
