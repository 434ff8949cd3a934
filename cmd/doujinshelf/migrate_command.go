package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/store/sqlite"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema",
		Long: `Migrate opens the database, which backs up and upgrades an older schema
in place, and reports the resulting version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			version, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Schema version %.2f (current %.2f)\n", version, sqlite.CurrentVersion)
			return nil
		},
	}
}
