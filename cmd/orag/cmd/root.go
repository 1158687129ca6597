// Package cmd provides the CLI commands for orag.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orag/internal/config"
	oerrors "github.com/Aman-CERP/orag/internal/errors"
	"github.com/Aman-CERP/orag/internal/logging"
	"github.com/Aman-CERP/orag/internal/output"
	"github.com/Aman-CERP/orag/internal/profiling"
	"github.com/Aman-CERP/orag/internal/vault"
	"github.com/Aman-CERP/orag/pkg/version"
)

// errReported marks an error whose details were already written to the
// user. Execute only sets the exit status for it.
var errReported = errors.New("error already reported")

var (
	loggingCleanup func()
	profileOpts    profiling.Options
	profile        *profiling.Session
)

// NewRootCmd creates the root command for the orag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orag",
		Short: "Semantic search and RAG context for Obsidian vaults",
		Long: `orag indexes the markdown notes of an Obsidian vault into a local
vector store and answers natural-language queries against it.

Run 'orag init' in the vault root, then 'orag index'. Use 'orag search'
for ranked notes, 'orag rag' for a prompt-ready context block, and
'orag serve' to expose both as MCP tools.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("orag version {{.Version}}\n")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write a CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write a heap profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write an execution trace to file")

	cmd.PersistentPreRunE = startLoggingAndProfiling

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRAGCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLoggingAndProfiling installs the default logger and starts any
// requested profiles. Logs go to the configured file at logging.level;
// stderr only shows warnings unless --debug is set.
func startLoggingAndProfiling(cmd *cobra.Command, _ []string) error {
	global := config.LoadGlobal()
	debug, _ := cmd.Flags().GetBool("debug")

	cfg := logging.Config{
		Level:       global.Logging.Level,
		FilePath:    global.Logging.File,
		Stderr:      cmd.ErrOrStderr(),
		StderrLevel: "warn",
	}
	if debug {
		cfg.Level = "debug"
		cfg.StderrLevel = "debug"
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))

	if profileOpts.Enabled() {
		profile, err = profiling.Start(profileOpts)
		if err != nil {
			return err
		}
	}
	return nil
}

func stopLoggingAndProfiling() error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, NewRootCmd())
	if err != nil && !errors.Is(err, errReported) {
		output.New(os.Stderr).Err(err)
	}
	return err
}

// run executes root and then stops logging and profiling. Cobra skips
// post-run hooks when a command fails, so the cleanup lives here.
func run(ctx context.Context, root *cobra.Command) (err error) {
	defer func() {
		if stopErr := stopLoggingAndProfiling(); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return root.ExecuteContext(ctx)
}

// openVault opens the vault containing the working directory.
func openVault(opts ...vault.Option) (*vault.Client, error) {
	return vault.Open("", opts...)
}

// fail writes err as JSON when jsonOut is set and returns errReported;
// otherwise it returns err for Execute to print.
func fail(cmd *cobra.Command, jsonOut bool, err error) error {
	if !jsonOut {
		return err
	}
	data, jerr := oerrors.FormatJSON(err)
	if jerr != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return errReported
}
