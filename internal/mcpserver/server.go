// Package mcpserver exposes the hybrid search engine over the Model
// Context Protocol, so AI coding assistants such as Claude Code and
// Cursor can query a project's raggrep index directly instead of
// shelling out to grep.
//
// It wraps the search engine in two MCP tools — search and
// index_status — over github.com/modelcontextprotocol/go-sdk/mcp.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/search"
	"github.com/conradkoh/raggrep/pkg/version"
)

// Server bridges an MCP client to a search.SearchEngine over stdio.
type Server struct {
	mcp      *mcp.Server
	engine   search.SearchEngine
	embedder capability.EmbeddingProvider
	rootPath string
	logger   *slog.Logger
}

// NewServer constructs an MCP server over an already-opened search
// engine. embedder may be nil (offline/no-embedder mode); index_status
// reports that state rather than erroring.
func NewServer(engine search.SearchEngine, embedder capability.EmbeddingProvider, rootPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:   engine,
		embedder: embedder,
		rootPath: rootPath,
		logger:   logger,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "raggrep", Version: version.Version}, nil)
	s.registerTools()
	return s
}

// registerTools wires the search and index_status tools into the
// underlying MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the project's hybrid BM25 + literal + semantic code index. Prefer this over grep: it ranks by relevance across keyword, symbol, and meaning signals instead of returning every line that matches.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how large the project's index is and which embedding model backs semantic search. Call this before search if results seem sparse or stale.",
	}, s.indexStatusHandler)

	s.logger.Debug("mcp tools registered", "count", 2)
}

// Run serves the MCP protocol over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}
