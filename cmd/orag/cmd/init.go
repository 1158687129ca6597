package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/config"
	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/output"
)

func newInitCmd() *cobra.Command {
	var (
		name  string
		dirs  []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .orag.yaml in the current directory",
		Long: `Create the vault configuration file .orag.yaml in the current directory.

The vault name keys the vector store collection and defaults to the
directory name. Dirs are relative to the vault root.`,
		Example: `  # Index the whole vault
  orag init

  # Index two folders under a custom name
  orag init --name work-notes --dirs Projects,Areas

  # Replace an existing config (the old one is backed up)
  orag init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			return runInit(cmd, wd, name, dirs, force)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Vault name (default: directory name)")
	cmd.Flags().StringSliceVar(&dirs, "dirs", []string{"."}, "Directories to index, relative to the vault root")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .orag.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, root, name string, dirs []string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if name == "" {
		name = config.DefaultVaultName(root)
	}
	cfg := config.VaultConfig{
		Name:        name,
		Dirs:        dirs,
		VectorStore: config.DefaultVectorStore,
		Root:        root,
	}
	if err := cfg.Validate(); err != nil {
		return oerrors.ConfigInvalid(err.Error(), nil)
	}

	path, err := config.WriteVaultConfig(root, cfg, force)
	if err != nil {
		return oerrors.ConfigInvalid("cannot write vault config", err).
			WithSuggestion("use --force to overwrite the existing file")
	}

	out.Successf("Created %s", path)
	out.Status("", "Vault name: "+cfg.Name)
	out.Hint("run `orag index` to build the index")
	return nil
}
