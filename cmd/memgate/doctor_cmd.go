package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/cli"
	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/embedding"
	"github.com/memgate-labs/memgate/internal/privacy"
	"github.com/memgate-labs/memgate/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system health and diagnose issues",
		Long:  "Runs health checks on your memgate setup: configuration, database, embedding provider, and the redaction pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	passed := 0
	failed := 0

	check := func(name string, hint string, fn func() (string, error)) {
		detail, err := fn()
		if err != nil {
			cli.Fail("%s: %v", name, err)
			if hint != "" {
				fmt.Printf("    → %s\n", hint)
			}
			failed++
			return
		}
		if detail != "" {
			cli.Ok("%s (%s)", name, detail)
		} else {
			cli.Ok("%s", name)
		}
		passed++
	}

	cli.Header("memgate health check")
	fmt.Println()

	var cfg *config.Config

	check("Configuration", "fix the errors printed above", func() (string, error) {
		loaded, err := config.Load()
		if err != nil {
			return "", err
		}
		result := config.Validate(loaded)
		if !result.OK() {
			return "", fmt.Errorf("%d error(s): %s", len(result.Errors), result.Errors[0])
		}
		cfg = loaded
		if len(result.Warnings) > 0 {
			return fmt.Sprintf("%d warning(s)", len(result.Warnings)), nil
		}
		return "", nil
	})
	if cfg == nil {
		cli.Fail("remaining checks skipped")
		return fmt.Errorf("configuration is invalid")
	}
	fmt.Printf("  data dir: %s\n", cli.ShortenHome(cfg.Data.Dir))

	check("Embedding provider", "set GEMINI_API_KEY or OPENAI_API_KEY, or use the local provider", func() (string, error) {
		svc, err := embedding.NewService(cfg.Embedding, nil, nil)
		if err != nil {
			return "", err
		}
		vec, err := svc.Embed("health check")
		if err != nil {
			return "", err
		}
		if len(vec) != svc.Dimensions() {
			return "", fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), svc.Dimensions())
		}
		return fmt.Sprintf("%s, %d dims", svc.Provider(), svc.Dimensions()), nil
	})

	check("Database", "run 'memgate ingest' or 'memgate remember' to create it", func() (string, error) {
		db, err := store.OpenPath(cfg.DBPath(), cfg.Embedding.Dimensions)
		if err != nil {
			return "", fmt.Errorf("cannot open")
		}
		defer db.Close()
		if err := db.IntegrityCheck(); err != nil {
			return "", err
		}
		docs, _ := db.Count(store.SourceDocument)
		facts, _ := db.Count(store.SourceUserFact)
		return fmt.Sprintf("%s chunks, %s facts", cli.FormatNumber(docs), cli.FormatNumber(facts)), nil
	})

	check("Redaction pipeline", "", func() (string, error) {
		probe := "SSN 123-45-6789, card 4532-1234-5678-9010, key sk_live_abcdef123456"
		res := privacy.Redact(probe)
		if res.RiskLevel != privacy.RiskHigh {
			return "", fmt.Errorf("high-severity probe not flagged")
		}
		if res.Confidence != privacy.ConfidenceHigh {
			return "", fmt.Errorf("probe left residual sensitive shapes")
		}
		again := privacy.Redact(res.CleanedText)
		if again.RedactionCount != 0 {
			return "", fmt.Errorf("redaction is not idempotent")
		}
		return fmt.Sprintf("%d redactions on probe", res.RedactionCount), nil
	})

	check("Consent gate", "", func() (string, error) {
		if !cfg.ConsentEnabled() {
			return "disabled by config", nil
		}
		return fmt.Sprintf("TTL %dms", cfg.Consent.TTLMillis), nil
	})

	fmt.Printf("\n  %d passed, %d failed\n\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
