package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCommand exposes operator visibility into schema migrations.
// postgres.Open already applies pending migrations on every process
// start (ddalab-server, ddalab-broker, ddalab-admin alike), so this
// command's only job is reporting what's been applied.
func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect database schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Println("Connecting to database applies any pending migrations automatically.")
			return db.MigrationStatus(ctx)
		},
	})
	return cmd
}
