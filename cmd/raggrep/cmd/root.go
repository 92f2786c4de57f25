// Package cmd provides the CLI commands for raggrep.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/obslog"
	"github.com/conradkoh/raggrep/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the raggrep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raggrep",
		Short: "Local-first hybrid code search",
		Long: `raggrep indexes a codebase with a hybrid BM25 + literal + semantic
search engine and serves queries over the CLI or as an MCP server for
AI coding assistants.

It runs entirely locally; no code ever leaves the machine.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("raggrep version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.raggrep/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	cfg := obslog.DefaultConfig()
	if debugMode {
		cfg = obslog.DebugConfig()
	}
	cfg.WriteToStderr = debugMode
	logger, cleanup, err := obslog.Setup(cfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
	}
	return nil
}
