package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carpool/internal/config"
	"carpool/internal/log"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type globalOptions struct {
	envFile   string
	logLevel  string
	logFormat string
}

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand builds the carpool command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:   "carpool",
		Short: "Carpool expense ledger with remote sync",
		Long: `carpool tracks shared commute trips, payments and car costs.

The ledger lives on this device and can be kept in step with a remote
copy (Google Sheets or Redis) by the serve command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			if opts.logLevel != "" {
				os.Setenv("LOG_LEVEL", opts.logLevel)
			}
			if opts.logFormat != "" {
				os.Setenv("LOG_FORMAT", opts.logFormat)
			}
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = SetupLogger(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format override (text, json)")

	root.AddCommand(
		newServeCommand(a),
		newBalanceCommand(a),
		newBackupCommand(a),
		newResetCommand(a),
		newPullCommand(a),
	)
	return root
}

// Execute runs the command tree until it returns or a shutdown signal
// arrives.
func Execute() error {
	ctx, cancel := GracefulShutdown(context.Background(), log.New(log.DefaultConfig()).WithComponent(log.ComponentCLI))
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return fmt.Errorf("carpool: %w", err)
	}
	return nil
}
