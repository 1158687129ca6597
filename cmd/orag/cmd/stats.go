package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics for the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openVault()
			if err != nil {
				return fail(cmd, jsonOut, err)
			}
			defer func() { _ = client.Close() }()

			st := client.GetStats(cmd.Context())
			r := ui.NewStatsRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOut {
				return r.RenderJSON(st)
			}
			return r.Render(st.Info())
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output statistics as JSON")

	return cmd
}
