package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/memgate-labs/memgate/internal/mcp"
	"github.com/memgate-labs/memgate/internal/web"
)

func mcpCmd() *cobra.Command {
	var withWeb bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the AI tool integration server (MCP over stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if withWeb {
				addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Web.Port)
				go func() {
					if err := web.Serve(addr, a.controller, a.bus, a.stats, Version); err != nil {
						a.logger.Warn("dashboard server stopped", zap.Error(err))
					}
				}()
			}

			mcpserver.Version = Version
			return mcpserver.NewServer(a.controller).Serve(context.Background())
		},
	}
	cmd.Flags().BoolVar(&withWeb, "with-dashboard", true, "Also serve the local dashboard API")
	return cmd
}

func webCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Serve only the local dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Web.Port)
			return web.Serve(addr, a.controller, a.bus, a.stats, Version)
		},
	}
}
