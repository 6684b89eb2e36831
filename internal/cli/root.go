package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homebase/internal/config"
	"github.com/dukerupert/homebase/internal/logging"
)

// RootOptions holds global flags and the configuration resolved from them.
type RootOptions struct {
	Port   string
	DBPath string

	Config config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the homebase command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "homebase",
		Short: "Household organizer backend",
		Long:  "homebase serves the family kiosk API: members, lists, tasks, calendar events and daily responsibilities.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				if _, err := strconv.Atoi(opts.Port); err != nil {
					return fmt.Errorf("--port: %q is not a port number", opts.Port)
				}
				cfg.Port = opts.Port
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = opts.DBPath
			}
			opts.Config = cfg
			opts.Logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(opts.Logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Port, "port", "8080", "HTTP listen port (overrides HOMEBASE_PORT)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "homebase.db", "SQLite database path (overrides HOMEBASE_DB_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}
