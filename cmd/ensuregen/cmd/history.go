package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history [MANIFEST]",
	Short: "Show recorded generation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "maximum runs to show")
	historyCmd.Flags().Duration("prune", 0, "delete runs older than this instead of listing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, cache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if prune, _ := cmd.Flags().GetDuration("prune"); prune > 0 {
		n, err := cache.PruneGenerations(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		a.log.Info("pruned generation history", zap.Int64("runs", n))
		return nil
	}

	var manifest string
	if len(args) == 1 {
		if manifest, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := cache.ListGenerations(ctx, manifest, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tMANIFEST\tVALIDATORS\tSITES\tDIAGNOSTICS\tDURATION")
	for _, g := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			g.Created().Local().Format(time.DateTime), g.Status, g.ManifestPath,
			g.Validators, g.FailureSites, g.Diagnostics,
			time.Duration(g.DurationMs)*time.Millisecond)
	}
	return tw.Flush()
}
