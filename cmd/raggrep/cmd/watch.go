package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/index"
	"github.com/conradkoh/raggrep/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and reindex changed files incrementally",
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
				Logger:         cliLogger(),
				Extensions:     cfg.Extensions,
				IgnorePatterns: cfg.IgnorePaths,
			})
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer func() { _ = eng.Close() }()

			if err := eng.IndexAll(ctx); err != nil {
				return fmt.Errorf("initial index: %w", err)
			}

			w, err := watcher.NewHybridWatcher(watcher.Options{}.WithDefaults())
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := w.Start(ctx, root); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()

			fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press Ctrl+C to stop")
			return runWatchLoop(ctx, eng, w)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings instead of Ollama")
	return cmd
}

// runWatchLoop applies each debounced batch of file events to the index
// incrementally, one changed file at a time via index.Engine.IndexFile.
func runWatchLoop(ctx context.Context, eng *index.Engine, w *watcher.HybridWatcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, ev := range batch {
				if ev.IsDir {
					continue
				}
				switch ev.Operation {
				case watcher.OpDelete:
					if err := eng.Finalize(seenExcept(eng, ev.Path)); err != nil {
						slog.Warn("finalize after delete failed", "file", ev.Path, "error", err)
					}
				default:
					if err := eng.IndexFile(ctx, ev.Path); err != nil {
						slog.Warn("reindex file failed", "file", ev.Path, "error", err)
					}
				}
			}
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// seenExcept returns every file currently indexed except removed, so a
// single deleted file can be dropped without a full rescan.
func seenExcept(eng *index.Engine, removed string) map[string]bool {
	seen := make(map[string]bool)
	for _, fs := range eng.AllFiles() {
		if fs.FilePath != removed {
			seen[fs.FilePath] = true
		}
	}
	return seen
}
