// ddalab-admin is the operator CLI for user and team provisioning
// against the institutional server's Postgres database, spec §10's
// "cobra CLI for user/team provisioning and migrations".
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

var databaseURL string

func main() {
	root := &cobra.Command{
		Use:   "ddalab-admin",
		Short: "Administrative CLI for the ddalab institutional server",
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")

	root.AddCommand(newUsersCommand())
	root.AddCommand(newTeamsCommand())
	root.AddCommand(newMigrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*postgres.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("--database-url (or DATABASE_URL) is required")
	}
	return postgres.Open(ctx, databaseURL)
}
