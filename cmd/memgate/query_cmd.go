package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/cli"
)

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [topic]",
		Short: "Query memory through the full privacy pipeline",
		Long:  "Runs the same retrieve-redact-gate pipeline the MCP tool uses and prints the payload an assistant would receive.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Println(a.controller.Query(topic))
			return nil
		},
	}
}

func rememberCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "remember [fact]",
		Short: "Save a fact to memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fact := strings.Join(args, " ")
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Println(a.controller.SaveFact(fact, category))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Optional category label")
	return cmd
}

func recentCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently stored memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.repo.Recent(limit)
			if err != nil {
				return err
			}
			if jsonOut {
				data, _ := json.MarshalIndent(records, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			if len(records) == 0 {
				fmt.Println("No memories stored yet.")
				return nil
			}
			for i, m := range records {
				text := m.Text
				if len(text) > 120 {
					text = text[:120] + "..."
				}
				tag := m.Source
				if m.Category != "" {
					tag += "/" + m.Category
				}
				fmt.Printf("%d. %s[%s]%s %s\n", i+1, cli.Dim, tag, cli.Reset, text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
