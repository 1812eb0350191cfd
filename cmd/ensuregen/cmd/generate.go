package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ensuregen/internal/core/db"
	"github.com/solatis/ensuregen/internal/generate"
	"github.com/solatis/ensuregen/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate MANIFEST...",
	Short: "Generate validators from manifests",
	Long: `Compiles every manifest and writes one Go file per manifest.
A manifest with error diagnostics produces no file; the command then exits non-zero
after reporting every diagnostic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringSlice("catalog", nil, "external rule catalog file (repeatable)")
	generateCmd.Flags().Int("workers", 4, "manifests compiled concurrently")
	generateCmd.Flags().String("on-failure", "continue", "default on-failure mode (continue, halt)")
	generateCmd.Flags().String("suffix", "_ensure.go", "generated file suffix")
	generateCmd.Flags().Bool("force", false, "regenerate even when the cache says outputs are current")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	database, cache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	force, _ := cmd.Flags().GetBool("force")
	gen := generate.New(generate.Options{
		Config:  a.cfg.Generate,
		Logger:  a.log,
		Cache:   cache,
		Version: Version,
		Force:   force,
	})

	report, err := gen.Run(ctx, args)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	for _, d := range report.Diagnostics() {
		fmt.Fprintln(out, d)
	}
	var ok, skipped, failed int
	for _, res := range report.Results {
		switch res.Status {
		case db.StatusOK:
			ok++
		case db.StatusSkipped:
			skipped++
		default:
			failed++
			if res.Err != nil {
				fmt.Fprintf(out, "%s: %v\n", res.Manifest, res.Err)
			}
		}
	}
	a.log.Info("generate finished",
		zap.Int("generated", ok),
		zap.Int("up_to_date", skipped),
		zap.Int("failed", failed))

	if report.Failed() {
		return types.ErrCompileFailed
	}
	return nil
}
