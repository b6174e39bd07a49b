// Package main is the entrypoint for the memgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/cli"
	"github.com/memgate-labs/memgate/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Best-effort .env bootstrap before config reads the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "memgate",
		Short: "Local-first personal memory gateway for AI assistants",
		Long: `memgate stores your notes and facts in a local vector index and serves
them to AI assistants over MCP — with PII redaction, risk gating, and
one-shot consent standing between your memory and the model.

Quick start:
  memgate ingest ./notes     Index a folder of notes
  memgate mcp                Start the MCP server (stdio)
  memgate doctor             Check that everything works`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(versionCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(rememberCmd())
	root.AddCommand(forgetCmd())
	root.AddCommand(consentCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(recentCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(webCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the memgate version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("memgate %s\n", Version)
			return nil
		},
	}
}

// loadValidatedConfig loads config and prints every diagnostic before
// deciding whether to proceed. Errors are fatal; warnings are not.
func loadValidatedConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	result := config.Validate(cfg)
	for _, w := range result.Warnings {
		cli.Warn("config: %s", w)
	}
	for _, e := range result.Errors {
		cli.Fail("config: %s", e)
	}
	if !result.OK() {
		return nil, fmt.Errorf("configuration is invalid (%d error(s))", len(result.Errors))
	}
	return cfg, nil
}
