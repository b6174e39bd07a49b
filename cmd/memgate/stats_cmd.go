package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/cli"
	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/store"
)

func statsCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory counts and gateway counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			docs, _ := a.db.Count(store.SourceDocument)
			facts, _ := a.db.Count(store.SourceUserFact)
			snap := loadSnapshot(a.cfg)

			if jsonOut {
				out := map[string]any{
					"documents":  docs,
					"user_facts": facts,
					"counters":   snap,
				}
				data, _ := json.MarshalIndent(out, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			cli.Header("memgate stats")
			fmt.Printf("  Document chunks:  %s\n", cli.FormatNumber(docs))
			fmt.Printf("  User facts:       %s\n", cli.FormatNumber(facts))
			fmt.Printf("  Queries served:   %s\n", cli.FormatNumber(snap.TotalQueries))
			fmt.Printf("  High-risk blocks: %s\n", cli.FormatNumber(snap.BlockedHighRisk))
			fmt.Printf("  Total redactions: %s\n", cli.FormatNumber(snap.TotalRedactions))
			fmt.Printf("  Files ingested:   %s (%s chunks, %s errors)\n",
				cli.FormatNumber(snap.IngestedFiles),
				cli.FormatNumber(snap.IngestedChunks),
				cli.FormatNumber(snap.IngestErrors))
			if len(snap.RedactionsByKind) > 0 {
				fmt.Println("\n  Redactions by kind:")
				for kind, n := range snap.RedactionsByKind {
					fmt.Printf("    %-30s %d\n", kind, n)
				}
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// loadSnapshot reads the persisted counters. The live process owns the
// authoritative copy; the file is the best view another process has.
func loadSnapshot(cfg *config.Config) bus.Snapshot {
	var snap bus.Snapshot
	data, err := os.ReadFile(cfg.StatsPath())
	if err != nil {
		return snap
	}
	_ = json.Unmarshal(data, &snap)
	return snap
}
