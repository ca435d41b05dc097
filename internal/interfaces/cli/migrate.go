package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
)

// Migration runners, replaceable in tests.
var (
	runMigrations     = postgres.RunMigrations
	rollbackMigration = postgres.RollbackMigration
	migrationStatus   = postgres.MigrationStatus
)

func NewMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: database.migration_path)")

	migrationsDir := func(cmd *cobra.Command) (string, string, error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return "", "", err
		}
		d := dir
		if d == "" {
			d = cliCtx.Config.Database.MigrationPath
		}
		return cliCtx.Config.Database.DSN(), d, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, d, err := migrationsDir(cmd)
			if err != nil {
				return err
			}
			if err := runMigrations(dsn, d); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, d, err := migrationsDir(cmd)
			if err != nil {
				return err
			}
			if err := rollbackMigration(dsn, d, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, d, err := migrationsDir(cmd)
			if err != nil {
				return err
			}
			v, dirty, err := migrationStatus(dsn, d)
			if err != nil {
				return err
			}
			return PrintResult(cmd, schemaVersion{Version: v, Dirty: dirty})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

type schemaVersion struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s schemaVersion) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }

func (s schemaVersion) TableRows() [][]string {
	return [][]string{{fmt.Sprint(s.Version), fmt.Sprint(s.Dirty)}}
}
