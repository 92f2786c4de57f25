package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/conradkoh/raggrep/internal/capability"
	"github.com/conradkoh/raggrep/internal/chunk"
	"github.com/conradkoh/raggrep/internal/config"
	"github.com/conradkoh/raggrep/internal/embed"
	"github.com/conradkoh/raggrep/internal/obslog"
)

// resolveRoot finds the project root from the current working directory,
// per config.FindProjectRoot (walk up looking for .git or raggrep.yaml).
func resolveRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return wd, nil
	}
	return root, nil
}

// loadEmbedder builds the embedding provider for a project: the model
// configured on its "default" module, resolved through embed.NewEmbedder
// (Ollama, returning an error when it is unavailable; --offline uses the
// static-hash embedder instead).
func loadEmbedder(ctx context.Context, cfg *config.Config, offline bool) (capability.EmbeddingProvider, error) {
	if offline {
		return newEmbedderAdapter(embed.NewStaticEmbedder768()), nil
	}

	model := cfg.Modules["default"].Options.EmbeddingModel
	e, err := embed.NewEmbedder(ctx, embed.ProviderOllama, model)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return newEmbedderAdapter(e), nil
}

// defaultParsers returns the bundled capability.Parser chain: tree-sitter
// for code, header-based chunking for Markdown. index.Open always
// appends a regex fallback after whatever parsers are passed in.
func defaultParsers() []capability.Parser {
	return []capability.Parser{
		chunk.NewTreeSitterParser(chunk.NewCodeChunker()),
		chunk.NewMarkdownParser(chunk.NewMarkdownChunker()),
	}
}

// cliProgress renders a one-line progress indicator to stderr. It stays
// silent when stderr isn't a terminal (piped output, CI logs) so it
// doesn't spam redirected output with carriage-return updates.
type cliProgress struct {
	stage string
	total int
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *cliProgress) Begin(stage string, total int) {
	p.stage, p.total = stage, total
	if total > 0 && isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s: 0/%d\n", stage, total)
	}
}

func (p *cliProgress) Tick(done int) {
	if p.total > 0 && isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", p.stage, done, p.total)
	}
}

func (p *cliProgress) Done() {
	if p.total > 0 && isTerminal(os.Stderr) {
		fmt.Fprintln(os.Stderr)
	}
}

func (p *cliProgress) Clear() {}

var _ capability.ProgressSink = (*cliProgress)(nil)

// cliLogger adapts the shared slog default logger set up by root.go's
// startLogging hook.
func cliLogger() capability.Logger {
	return obslog.SlogAdapter{L: slog.Default()}
}
