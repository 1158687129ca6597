package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the vault as MCP tools over stdio",
		Long: `Start an MCP server on stdin/stdout exposing the tools search,
rag_context and stats for the vault containing the working directory.

Stdout carries only JSON-RPC messages; logs go to stderr and the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openVault()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			srv, err := mcp.NewServer(client)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
}
