package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dsedash/scenariodb/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for scenariodb on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			return mcp.NewServer(e.uc, version).Run(ctx)
		},
	}

	return cmd
}
