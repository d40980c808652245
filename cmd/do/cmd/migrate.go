package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/fileshare/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()
			return db.RunMigrations(cmd.Context(), conn.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()
			return db.MigrateDown(cmd.Context(), conn.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()

			version, err := db.Version(cmd.Context(), conn.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	})

	return cmd
}
