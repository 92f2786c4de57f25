package cmd

import (
	"context"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/embed"
)

// embedderAdapter satisfies capability.EmbeddingProvider over an
// internal/embed.Embedder, whose concrete provider implementations
// (Ollama, static hash fallback) the retrieval core never imports
// directly (internal/capability's whole point); this adapter is the one
// place that bridges the two.
type embedderAdapter struct {
	inner embed.Embedder
}

func newEmbedderAdapter(inner embed.Embedder) capability.EmbeddingProvider {
	return embedderAdapter{inner: inner}
}

func (a embedderAdapter) Dimension() int    { return a.inner.Dimensions() }
func (a embedderAdapter) ModelName() string { return a.inner.ModelName() }

func (a embedderAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.inner.Embed(ctx, text)
}

func (a embedderAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return a.inner.EmbedBatch(ctx, texts)
}

var _ capability.EmbeddingProvider = embedderAdapter{}
