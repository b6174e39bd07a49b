package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memgate-labs/memgate/internal/cli"
)

// The consent map lives inside the running gateway process, so the CLI
// talks to its dashboard API instead of building its own gate.
func consentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Grant or deny release of high-risk content",
	}
	cmd.AddCommand(consentSubCmd("grant", "Permit one high-risk release for a topic"))
	cmd.AddCommand(consentSubCmd("deny", "Revoke any pending consent for a topic"))
	return cmd
}

func consentSubCmd(decision, short string) *cobra.Command {
	return &cobra.Command{
		Use:   decision + " [topic]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}

			body, _ := json.Marshal(map[string]string{"topic": topic})
			url := fmt.Sprintf("http://127.0.0.1:%d/api/consent/%s", cfg.Web.Port, decision)

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("cannot reach the gateway — is 'memgate mcp' running? (%w)", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gateway returned %d", resp.StatusCode)
			}

			if decision == "grant" {
				cli.Ok("Consent granted for %q (single use, expires in %dms)", topic, cfg.Consent.TTLMillis)
			} else {
				cli.Ok("Consent denied for %q", topic)
			}
			return nil
		},
	}
}
