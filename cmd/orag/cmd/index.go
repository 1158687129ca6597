package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/config"
	"github.com/Aman-CERP/orag/internal/index"
	"github.com/Aman-CERP/orag/internal/output"
	"github.com/Aman-CERP/orag/internal/ui"
	"github.com/Aman-CERP/orag/internal/vault"
)

type indexOptions struct {
	force   bool
	jsonOut bool
	noTUI   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the vault's markdown notes",
		Long: `Scan the configured directories, split every markdown note into chunks,
embed them and write them to the vault's vector store.

Re-running is incremental: unchanged chunks are overwritten in place and
notes that no longer exist are removed. Use --force to clear the
collection first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Clear the collection before indexing")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the progress TUI, use plain text output")

	return cmd
}

func newReindexCmd() *cobra.Command {
	var (
		yes     bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Delete the vault's index and build it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := confirm(cmd, "This deletes the vault's index and rebuilds it. Continue? [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					output.New(cmd.OutOrStdout()).Info("Aborted")
					return nil
				}
			}
			return runIndex(cmd, indexOptions{force: true, jsonOut: jsonOut})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result as JSON")

	return cmd
}

func runIndex(cmd *cobra.Command, opts indexOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	root, err := config.FindVaultRoot(".")
	if err != nil {
		return fail(cmd, opts.jsonOut, err)
	}

	var renderer ui.Renderer = ui.NopRenderer{}
	if !opts.jsonOut {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithForcePlain(opts.noTUI),
			ui.WithVaultDir(root),
			ui.WithOnCancel(cancel),
		))
	}

	client, err := vault.Open(root, vault.WithRenderer(renderer))
	if err != nil {
		return fail(cmd, opts.jsonOut, err)
	}
	defer func() { _ = client.Close() }()

	var res index.Result
	if opts.force {
		res = client.ReindexVault(ctx)
	} else {
		res = client.IndexVault(ctx, false)
	}

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOut {
		if err := out.JSON(res); err != nil {
			return err
		}
	} else {
		out.IndexResult(res)
	}

	if res.Status != index.StatusSuccess {
		return errReported
	}
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
