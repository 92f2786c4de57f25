// Command raggrep is a local-first hybrid code search engine: it builds
// a BM25 + literal + semantic index of a project and serves queries over
// the CLI or as an MCP server for AI coding assistants.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/conradkoh/raggrep/cmd/raggrep/cmd"
)

func main() {
	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
