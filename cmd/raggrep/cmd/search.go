package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/search"
)

type searchOptions struct {
	limit     int
	extension string
	pathGlob  string
	format    string // "text", "json"
	offline   bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search the indexed codebase using hybrid BM25 + literal + semantic
search with additive fusion scoring.

Examples:
  raggrep search "authentication middleware"
  raggrep search "handleRequest" --ext go --limit 5
  raggrep search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: module's configured topK, or 10)")
	cmd.Flags().StringVar(&opts.extension, "ext", "", "Filter by extension (e.g. go, without the dot)")
	cmd.Flags().StringVar(&opts.pathGlob, "path", "", "Filter by path glob")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings instead of Ollama")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()
	root, err := resolveRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	embedder, err := loadEmbedder(ctx, cfg, opts.offline)
	if err != nil {
		return err
	}

	se := search.NewEngine(embedder)
	if err := se.AddModule(root); err != nil {
		return fmt.Errorf("add module: %w", err)
	}
	defer func() { _ = se.Close() }()

	mod := cfg.Modules["default"]
	searchOpts := search.SearchOptions{
		Limit:     opts.limit,
		Extension: opts.extension,
		PathGlob:  opts.pathGlob,
	}
	if searchOpts.Limit == 0 {
		searchOpts.Limit = mod.Options.TopK
	}

	results, err := se.Search(ctx, query, searchOpts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%.3f  %s:%d-%d\n", r.Score, r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine)
		if len(r.Reasons) > 0 {
			fmt.Fprintf(out, "      %s\n", strings.Join(r.Reasons, ", "))
		}
	}
	return nil
}
