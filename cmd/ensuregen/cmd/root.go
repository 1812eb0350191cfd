package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ensuregen/internal/core/config"
	"github.com/solatis/ensuregen/internal/core/db"
	"github.com/solatis/ensuregen/internal/core/logging"
)

// Version is the tool version recorded in generated caches.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "ensuregen",
	Short: "Compile validation manifests into Go validators",
	Long: `ensuregen turns declarative validation rule chains into plain Go code.
Rules are resolved against typed catalogs at build time, so the generated
validators run without reflection.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "generation cache URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")
}

func Execute() error {
	return rootCmd.Execute()
}

// app is the configuration and logger every command starts from.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format),
		logging.WithOutput(cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &app{cfg: cfg, log: logger}, nil
}

// openCache opens the generation cache and checks its schema is current.
// Returns nil queries when no database is configured.
func (a *app) openCache(ctx context.Context) (*sqlx.DB, *db.Queries, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil, nil
	}
	database, err := db.Open(a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", config.RedactURL(a.cfg.DatabaseURL), err)
	}
	pending, err := db.Pending(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending {
		database.Close()
		return nil, nil, fmt.Errorf("generation cache schema is out of date - run 'ensuregen migrate up' first")
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	a.log.Debug("generation cache open", zap.String("url", config.RedactURL(a.cfg.DatabaseURL)))
	return database, queries, nil
}
