package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gdg-garage/medislot-api/internal/config"
	"github.com/gdg-garage/medislot-api/internal/obs"
	"github.com/spf13/cobra"
)

// RootOptions holds state shared by all subcommands.
type RootOptions struct {
	EnvFile string
	Config  *config.Config
	Logger  *slog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "medislot",
		Short:         "MediSlot - health event registration and lab booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.EnvFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.Config = cfg
			opts.Logger = obs.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewNotifyWorkerCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
