package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/cli"
	"github.com/memgate-labs/memgate/internal/ingest"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [path...]",
		Short: "Index files or directories into memory",
		Long:  "Extract, chunk, embed, and store the given files or directories. Supported: .txt, .md, .pdf. Unchanged files (same size and mtime) are skipped.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			totalFiles, totalChunks := 0, 0
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					cli.Fail("%s: %v", path, err)
					continue
				}
				if info.IsDir() {
					files, chunks, err := a.ingester.IngestDir(path)
					if err != nil {
						cli.Fail("%s: %v", path, err)
						continue
					}
					totalFiles += files
					totalChunks += chunks
				} else {
					chunks, err := a.ingester.IngestFile(path)
					if err != nil {
						cli.Fail("%s: %v", path, err)
						continue
					}
					if chunks > 0 {
						totalFiles++
						totalChunks += chunks
					}
				}
			}

			cli.Ok("Indexed %s file(s), %s chunk(s)",
				cli.FormatNumber(totalFiles), cli.FormatNumber(totalChunks))
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and auto-ingest changes",
		Long:  "Monitor a directory for supported file changes. Modified and created files are re-ingested with a 2-second debounce; removed files are deleted from the index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
				return fmt.Errorf("not a directory: %s", args[0])
			}
			fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop.\n")
			return ingest.Watch(args[0], a.ingester, a.logger)
		},
	}
}

func forgetCmd() *cobra.Command {
	var (
		documents bool
		facts     bool
		source    string
	)
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete stored memories",
		Long:  "Delete memories by source file (--source), or clear all documents (--documents) or all user facts (--facts).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !documents && !facts && source == "" {
				return fmt.Errorf("nothing to forget: pass --source, --documents, or --facts")
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if source != "" {
				n, err := a.repo.DeleteDocumentsBySource(source)
				if err != nil {
					return err
				}
				cli.Ok("Deleted %d chunk(s) from %s", n, source)
			}
			if documents {
				n, err := a.repo.ClearDocuments()
				if err != nil {
					return err
				}
				cli.Ok("Cleared %d document chunk(s)", n)
			}
			if facts {
				n, err := a.repo.ClearUserFacts()
				if err != nil {
					return err
				}
				cli.Ok("Cleared %d user fact(s)", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&documents, "documents", false, "Clear all document chunks")
	cmd.Flags().BoolVar(&facts, "facts", false, "Clear all user facts")
	cmd.Flags().StringVar(&source, "source", "", "Delete chunks ingested from this source file")
	return cmd
}
