package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conradkoh/raggrep/internal/search"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"the search query to execute"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Extension string `json:"extension,omitempty" jsonschema:"restrict results to files with this extension, without the leading dot, e.g. go"`
	PathGlob  string `json:"path_glob,omitempty" jsonschema:"restrict results to files whose path matches this glob"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// SearchResultOutput is one ranked hit, flattened for an MCP client.
type SearchResultOutput struct {
	FilePath  string   `json:"file_path" jsonschema:"file path relative to the project root"`
	StartLine int      `json:"start_line" jsonschema:"first line of the matched chunk"`
	EndLine   int      `json:"end_line" jsonschema:"last line of the matched chunk"`
	Name      string   `json:"name,omitempty" jsonschema:"symbol name, when the chunk is a function, type or similar"`
	Type      string   `json:"type,omitempty" jsonschema:"chunk kind, e.g. function, type, block"`
	Content   string   `json:"content" jsonschema:"matched content snippet"`
	Score     float64  `json:"score" jsonschema:"relevance score"`
	Reasons   []string `json:"reasons,omitempty" jsonschema:"signals that contributed to this result's score"`
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}

	opts := search.SearchOptions{
		Limit:     10,
		Extension: input.Extension,
		PathGlob:  input.PathGlob,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search: %w", err)
	}

	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			FilePath:  r.Chunk.FilePath,
			StartLine: r.Chunk.StartLine,
			EndLine:   r.Chunk.EndLine,
			Name:      r.Chunk.Name,
			Type:      string(r.Chunk.Type),
			Content:   r.Chunk.Content,
			Score:     r.Score,
			Reasons:   r.Reasons,
		})
	}
	return nil, out, nil
}

// IndexStatusInput is the (empty) input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	ModuleCount     int    `json:"module_count" jsonschema:"number of indexed modules"`
	FileCount       int    `json:"file_count" jsonschema:"number of indexed files"`
	VectorCount     int    `json:"vector_count" jsonschema:"number of stored embedding vectors"`
	EmbeddingModel  string `json:"embedding_model,omitempty" jsonschema:"name of the active embedding model"`
	EmbeddingDims   int    `json:"embedding_dimensions,omitempty" jsonschema:"dimension of the active embedding model"`
	SemanticEnabled bool   `json:"semantic_enabled" jsonschema:"whether semantic (vector) search is active"`
}

type statser interface {
	Stats() search.EngineStats
}

func (s *Server) indexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	out := IndexStatusOutput{}
	if st, ok := s.engine.(statser); ok {
		stats := st.Stats()
		out.ModuleCount = stats.ModuleCount
		out.FileCount = stats.FileCount
		out.VectorCount = stats.VectorCount
	}
	if s.embedder != nil {
		out.EmbeddingModel = s.embedder.ModelName()
		out.EmbeddingDims = s.embedder.Dimension()
		out.SemanticEnabled = true
	}
	return nil, out, nil
}
