package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/solatis/ensuregen/internal/types"
)

// EnvPrefix is prepended to every environment variable: ENSUREGEN_SERVER_PORT.
const EnvPrefix = "ENSUREGEN"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"db-url":     "database.url",
	"log-level":  "log.level",
	"log-format": "log.format",
	"host":       "server.host",
	"port":       "server.port",
	"catalog":    "generate.catalogs",
	"workers":    "generate.workers",
	"on-failure": "generate.default_on_failure",
	"suffix":     "generate.output_suffix",
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil; only flags that were set on the command line override.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults matching Default
	d := Default()
	v.SetDefault("generate.output_suffix", d.Generate.OutputSuffix)
	v.SetDefault("generate.catalogs", d.Generate.Catalogs)
	v.SetDefault("generate.default_on_failure", d.Generate.DefaultOnFailure)
	v.SetDefault("generate.workers", d.Generate.Workers)
	v.SetDefault("generate.fix_imports", d.Generate.FixImports)
	v.SetDefault("generate.scan_source", d.Generate.ScanSource)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_manifest_bytes", d.Server.MaxManifestBytes)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("database.url", "")

	// Bind environment variables with ENSUREGEN_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials must come from the environment or the command line
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Generate: GenerateConfig{
			OutputSuffix:     v.GetString("generate.output_suffix"),
			Catalogs:         v.GetStringSlice("generate.catalogs"),
			DefaultOnFailure: v.GetString("generate.default_on_failure"),
			Workers:          v.GetInt("generate.workers"),
			FixImports:       v.GetBool("generate.fix_imports"),
			ScanSource:       v.GetBool("generate.scan_source"),
		},
		Server: ServerConfig{
			Host:             v.GetString("server.host"),
			Port:             v.GetInt("server.port"),
			RequestTimeout:   v.GetDuration("server.request_timeout"),
			MaxManifestBytes: v.GetInt("server.max_manifest_bytes"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		DatabaseURL: v.GetString("database.url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive limits, known modes and formats.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxManifestBytes <= 0 || cfg.Server.MaxManifestBytes > types.MaxManifestSize {
		return fmt.Errorf("max_manifest_bytes must be between 1 and %d, got %d", types.MaxManifestSize, cfg.Server.MaxManifestBytes)
	}
	if cfg.Generate.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Generate.Workers)
	}
	if !strings.HasSuffix(cfg.Generate.OutputSuffix, ".go") || strings.HasSuffix(cfg.Generate.OutputSuffix, "_test.go") {
		return fmt.Errorf("output_suffix must end in .go and not _test.go, got %q", cfg.Generate.OutputSuffix)
	}
	mode, err := types.ParseOnFailure(cfg.Generate.DefaultOnFailure)
	if err != nil {
		return fmt.Errorf("default_on_failure: %w", err)
	}
	if mode == types.OnFailureInherit {
		return fmt.Errorf("default_on_failure must be continue or halt, got %q", cfg.Generate.DefaultOnFailure)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only credentials (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if !v.InConfig("database.url") {
		return nil
	}
	u, err := url.Parse(v.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("database.url: %w", err)
	}
	if _, ok := u.User.Password(); ok {
		return fmt.Errorf("database passwords not allowed in config files (use %s_DATABASE_URL environment variable)", EnvPrefix)
	}
	return nil
}
