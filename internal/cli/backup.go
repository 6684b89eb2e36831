package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homebase/internal/backup"
	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/objstore"
)

var errNoBucket = errors.New("backups need S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY")

func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Encrypted database backups in S3-compatible storage",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Snapshot the database and upload it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if !cfg.S3.Enabled() {
				return errNoBucket
			}

			db, err := database.Connect(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			mgr := backup.NewManager(db, objstore.NewClient(cfg.S3), backupConfig(rootOpts), rootOpts.Logger.With("component", "backup"))
			key, err := mgr.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the database with a downloaded backup",
		Long:  "Download, decrypt and verify a backup, then move it over the database file. Stop the server first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if !cfg.S3.Enabled() {
				return errNoBucket
			}

			mgr := backup.NewManager(nil, objstore.NewClient(cfg.S3), backupConfig(rootOpts), rootOpts.Logger.With("component", "backup"))
			if err := mgr.Restore(cmd.Context(), args[0], cfg.DBPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s to %s\n", args[0], cfg.DBPath)
			return nil
		},
	})

	return cmd
}

func backupConfig(opts *RootOptions) backup.Config {
	return backup.Config{
		Bucket:     opts.Config.S3.Bucket,
		Passphrase: opts.Config.BackupPassphrase,
	}
}
