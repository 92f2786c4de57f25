package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/index"
)

func newIndexCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the on-disk index for the current project",
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

			eng, err := index.Open(index.Config{
				Root:           root,
				Embedder:       embedder,
				Parsers:        defaultParsers(),
				Progress:       &cliProgress{},
				Logger:         cliLogger(),
				Extensions:     cfg.Extensions,
				IgnorePatterns: cfg.IgnorePaths,
			})
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer func() { _ = eng.Close() }()

			if err := eng.IndexAll(ctx); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexing complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings instead of Ollama")
	return cmd
}
