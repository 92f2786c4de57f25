package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/search"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size for the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot()
			if err != nil {
				return err
			}
			if _, err := config.Load(root); err != nil {
				return err
			}

			se := search.NewEngine(nil)
			if err := se.AddModule(root); err != nil {
				return fmt.Errorf("add module: %w", err)
			}
			defer func() { _ = se.Close() }()

			stats := se.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "modules: %d\n", stats.ModuleCount)
			fmt.Fprintf(out, "files:   %d\n", stats.FileCount)
			fmt.Fprintf(out, "vectors: %d\n", stats.VectorCount)
			return nil
		},
	}
}
