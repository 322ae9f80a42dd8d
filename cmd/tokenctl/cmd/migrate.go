package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/feetoken/internal/infra"
	"github.com/congo-pay/feetoken/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(c *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return ErrMissingDatabase
			}
			ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
			defer cancel()

			pool, err := infra.NewPostgresPool(ctx, databaseURL, false, nil)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := infra.Migrate(ctx, pool, logging.New("info"))
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(c.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&databaseURL, "database-url", envOr("DATABASE_URL", ""), "postgres url (DATABASE_URL)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List embedded migrations",
		RunE: func(c *cobra.Command, _ []string) error {
			migrations, err := infra.Migrations()
			if err != nil {
				return err
			}
			for _, m := range migrations {
				fmt.Fprintln(c.OutOrStdout(), m.Version)
			}
			return nil
		},
	}
	migrateCmd.AddCommand(listCmd)
	return migrateCmd
}
