package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/mcp"
)

func newMCPCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for geocap on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer func() {
				_ = app.Close()
			}()

			ctx := context.Background()
			return mcp.NewServer(app, version).Run(ctx)
		},
	}

	return cmd
}
