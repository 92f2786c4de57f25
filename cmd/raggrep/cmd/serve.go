package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/mcpserver"
	"github.com/conradkoh/raggrep/internal/search"
)

func newServeCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search index over MCP (stdio) for AI coding assistants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}

			embedder, err := loadEmbedder(ctx, cfg, offline)
			if err != nil {
				return err
			}

			se := search.NewEngine(embedder)
			if err := se.AddModule(root); err != nil {
				return fmt.Errorf("add module: %w", err)
			}
			defer func() { _ = se.Close() }()

			srv := mcpserver.NewServer(se, embedder, root, slog.Default())
			return srv.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings instead of Ollama")
	return cmd
}
