package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/faithdive/faithdive/internal/cli/ui"
	"github.com/faithdive/faithdive/internal/store/migrate"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Run and manage database migrations.

Migrations are embedded in the binary, with one set per database dialect
(SQLite and PostgreSQL). The database is taken from database.driver and
database.url in the config file, or DATABASE_URL.

Available subcommands:
  up       - Apply all pending migrations
  down     - Rollback the last migration
  status   - Show migration status`,
	}

	cmd.AddCommand(newMigrateUpCommand(opts))
	cmd.AddCommand(newMigrateDownCommand(opts))
	cmd.AddCommand(newMigrateStatusCommand(opts))

	return cmd
}

func newMigrateUpCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupCommand(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer env.Close()

			migrations, err := migrate.Load(env.db.Dialect())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var applied int
			err = ui.WithSpinner(out, "Applying migrations", opts.noColor, func() error {
				applied, err = migrate.NewRunner(env.db, env.logger).MigrateUp(cmd.Context(), migrations)
				return err
			})
			if err != nil {
				ui.Message{
					Level:   ui.LevelError,
					Context: "migration failed",
					Text:    err.Error(),
					Details: []string{"Migrations applied before the failure were kept."},
					Hints:   []string{"Check status: faithdive migrate status"},
					NoColor: opts.noColor,
				}.Write(cmd.ErrOrStderr())
				return fmt.Errorf("migrate up: %w", err)
			}

			if applied == 0 {
				ui.Info(out, opts.noColor, "Database is up to date")
			} else {
				ui.Success(out, opts.noColor, "Applied %d migration(s)", applied)
			}
			return nil
		},
	}
}

func newMigrateDownCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Rollback the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupCommand(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer env.Close()

			m, err := migrate.NewRunner(env.db, env.logger).MigrateDown(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			ui.Success(cmd.OutOrStdout(), opts.noColor, "Rolled back %04d_%s", m.Version, m.Name)
			return nil
		},
	}
}

func newMigrateStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupCommand(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer env.Close()

			migrations, err := migrate.Load(env.db.Dialect())
			if err != nil {
				return err
			}
			status, err := migrate.NewRunner(env.db, env.logger).Status(cmd.Context(), migrations)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			table := ui.NewTable(out, opts.noColor, "Version", "Name", "Status", "Applied At")
			for _, m := range status.Applied {
				table.AddRow(strconv.FormatInt(m.Version, 10), m.Name, "applied", m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
			}
			for _, m := range status.Pending {
				table.AddRow(strconv.FormatInt(m.Version, 10), m.Name, "pending", "")
			}
			table.Render()
			fmt.Fprintln(out)
			fmt.Fprintln(out, status.Summary())
			return nil
		},
	}
}
