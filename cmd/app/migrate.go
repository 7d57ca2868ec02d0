package main

import (
	"fmt"

	"orderflow/internal/adapters/out/postgres/migrations"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(c *cobra.Command, _ []string) error {
				ctx := commandContext(c)
				db, err := migrations.Open(ctx, getConfigs().DSN())
				if err != nil {
					return err
				}
				defer db.Close()
				return migrations.Up(ctx, db)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(c *cobra.Command, _ []string) error {
				ctx := commandContext(c)
				db, err := migrations.Open(ctx, getConfigs().DSN())
				if err != nil {
					return err
				}
				defer db.Close()
				return migrations.Down(ctx, db)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(c *cobra.Command, _ []string) error {
				ctx := commandContext(c)
				db, err := migrations.Open(ctx, getConfigs().DSN())
				if err != nil {
					return err
				}
				defer db.Close()
				version, err := migrations.Version(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "schema version %d\n", version)
				return nil
			},
		},
	)
	return c
}
