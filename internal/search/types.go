// Package search implements the query path: query parsing, synonym
// expansion, additive fusion scoring and the read-only SearchEngine
// that ties them together over a module's on-disk indices.
package search

import (
	"context"

	"github.com/conradkoh/raggrep/internal/store"
)

// SearchEngine is the read-only query interface over one or more
// indexed modules.
type SearchEngine interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
	Close() error
}

// SearchOptions configures a single query.
type SearchOptions struct {
	// Limit is the maximum number of results to return (default 10).
	Limit int

	// PathGlob, when non-empty, restricts results to files whose path
	// matches this glob.
	PathGlob string

	// Extension, when non-empty, restricts results to files with this
	// extension (without the leading dot).
	Extension string

	// Weights overrides the default fusion weights.
	Weights Weights

	// CandidateFiles caps how many Tier-1 files FindCandidates considers
	// per module before chunk-level scoring (default 50).
	CandidateFiles int
}

// SearchResult is one scored, ranked hit.
type SearchResult struct {
	Chunk   store.Chunk
	Score   float64
	Reasons []string
}

// EngineStats reports aggregate index size across every loaded module.
type EngineStats struct {
	ModuleCount int
	FileCount   int
	VectorCount int
}

const (
	defaultLimit          = 10
	defaultCandidateFiles = 50
)
