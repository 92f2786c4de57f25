package chunk

import (
	"context"
	"testing"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStoreChunks_EmptyParsed_EmitsFileLevelFallback(t *testing.T) {
	content := "line1\nline2\nline3\n"
	chunks := ToStoreChunks("pkg/file.go", content, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, store.ChunkFile, chunks[0].Type)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestToStoreChunks_ContentSlicedFromAuthoritativeFileText(t *testing.T) {
	content := "a\nb\nc\nd\ne\n"
	parsed := []capability.ParsedChunk{{Type: "function", Name: "f", StartLine: 2, EndLine: 4, Content: "garbage-from-parser"}}
	chunks := ToStoreChunks("x.go", content, parsed)
	require.Len(t, chunks, 1)
	assert.Equal(t, "b\nc\nd", chunks[0].Content)
}

func TestToStoreChunks_IDDeterministicFromPathAndLines(t *testing.T) {
	content := "a\nb\nc\n"
	parsed := []capability.ParsedChunk{{Type: "function", Name: "f", StartLine: 1, EndLine: 2}}
	a := ToStoreChunks("x.go", content, parsed)
	b := ToStoreChunks("x.go", content, parsed)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.Equal(t, store.ChunkID("x.go", 1, 2), a[0].ID)
}

func TestToStoreChunks_ClampsEndLineToFileLength(t *testing.T) {
	content := "a\nb\n"
	parsed := []capability.ParsedChunk{{Type: "function", Name: "f", StartLine: 1, EndLine: 999}}
	chunks := ToStoreChunks("x.go", content, parsed)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestRegexFallbackChunker_FindsGoFunction(t *testing.T) {
	src := "package main\n\nfunc DoThing(x int) int {\n\treturn x + 1\n}\n"
	p := RegexFallbackChunker{}
	res, err := p.Parse(context.Background(), []byte(src), "main.go")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.Chunks)
	found := false
	for _, c := range res.Chunks {
		if c.Name == "DoThing" {
			found = true
			assert.Equal(t, "function", c.Type)
			assert.True(t, c.IsExported)
		}
	}
	assert.True(t, found)
}

func TestRegexFallbackChunker_CanParseAnyFile(t *testing.T) {
	p := RegexFallbackChunker{}
	assert.True(t, p.CanParse("whatever.xyz"))
}

func TestIsExportedName(t *testing.T) {
	assert.True(t, isExportedName("DoThing"))
	assert.False(t, isExportedName("doThing"))
	assert.False(t, isExportedName(""))
}

func TestBuildEmbeddingInput_IncludesPathContextNameAndDoc(t *testing.T) {
	pc := store.PathContext{Layer: "handler", Domain: "auth"}
	c := store.Chunk{Name: "Login", DocComment: "Login authenticates a user.", Content: "func Login() {}"}
	in := BuildEmbeddingInput(pc, c)
	assert.Contains(t, in, "[handler/auth]")
	assert.Contains(t, in, "Login:")
	assert.Contains(t, in, "Login authenticates a user.")
	assert.Contains(t, in, "func Login() {}")
}

func TestBuildEmbeddingInput_NoPathContext_StillIncludesContent(t *testing.T) {
	c := store.Chunk{Content: "x := 1"}
	in := BuildEmbeddingInput(store.PathContext{}, c)
	assert.Contains(t, in, "x := 1")
}

func TestNewTreeSitterParser_CanParseRespectsSupportedExtensions(t *testing.T) {
	cc := NewCodeChunker()
	defer cc.Close()
	p := NewTreeSitterParser(cc)
	assert.True(t, p.CanParse("main.go"))
	assert.False(t, p.CanParse("main.unknownlang"))
}
