package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ensuregen/internal/core/config"
	"github.com/solatis/ensuregen/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the generation cache schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, database, err := openForMigrate(cmd)
		if err != nil {
			return err
		}
		defer database.Close()
		defer a.log.Sync()

		ran, err := db.MigrateUp(ctx, database)
		if err != nil {
			return err
		}
		if len(ran) == 0 {
			a.log.Info("schema is up to date")
			return nil
		}
		a.log.Info("applied migrations", zap.Strings("migrations", ran))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, database, err := openForMigrate(cmd)
		if err != nil {
			return err
		}
		defer database.Close()
		defer a.log.Sync()

		statuses, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MIGRATION\tSTATE\tAPPLIED\tDURATION")
		for _, s := range statuses {
			if !s.Applied {
				fmt.Fprintf(tw, "%s\tpending\t-\t-\n", s.ID)
				continue
			}
			fmt.Fprintf(tw, "%s\tapplied\t%s\t%s\n", s.ID,
				s.AppliedAt.Local().Format(time.DateTime),
				time.Duration(s.ExecutionMs)*time.Millisecond)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

// openForMigrate opens the database without the schema check openCache does.
func openForMigrate(cmd *cobra.Command) (*app, *sqlx.DB, error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", config.RedactURL(a.cfg.DatabaseURL), err)
	}
	return a, database, nil
}
