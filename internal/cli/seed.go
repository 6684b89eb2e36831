package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/seed"
)

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load members, lists and responsibilities from a YAML file",
		Long: `Load a household description into the database.

Members and lists that already exist by name are left alone, as are
responsibilities whose title already exists for the same member, so a
seed file can be applied repeatedly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			db, err := database.Open(rootOpts.Config.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := seed.Apply(cmd.Context(), db, f, rootOpts.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d members, %d lists, %d responsibilities\n",
				res.Members, res.Lists, res.Responsibilities)
			return nil
		},
	}
}
