package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/QuesmaOrg/demo-webr-ggplot/toolserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the notebook as an MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		nb, cleanup, err := openNotebook(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv, err := toolserver.New(nb, toolserver.Options{Logger: logger.Named("mcp")})
		if err != nil {
			return err
		}
		logger.Info("mcp server listening on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	},
}
