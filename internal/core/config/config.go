// Package config provides configuration management for ensuregen commands.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/solatis/ensuregen/internal/types"
)

// Config is the full ensuregen configuration.
type Config struct {
	Generate    GenerateConfig
	Server      ServerConfig
	Log         LogConfig
	DatabaseURL string
}

// GenerateConfig controls the generate command and the compile service.
type GenerateConfig struct {
	OutputSuffix     string   // appended to the manifest base name: user.yaml -> user_ensure.go
	Catalogs         []string // external catalog files, loaded after the built-in rules
	DefaultOnFailure string   // continue or halt
	Workers          int      // manifests compiled concurrently
	FixImports       bool
	ScanSource       bool // fill missing chain types from the target package
}

// ServerConfig holds configuration for the gRPC compile service.
type ServerConfig struct {
	Host             string
	Port             int
	RequestTimeout   time.Duration
	MaxManifestBytes int
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string
	Format string // json or console
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Generate: GenerateConfig{
			OutputSuffix:     "_ensure.go",
			DefaultOnFailure: "continue",
			Workers:          4,
			FixImports:       true,
			ScanSource:       true,
		},
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             50061,
			RequestTimeout:   30 * time.Second,
			MaxManifestBytes: types.MaxManifestSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// OnFailure returns the parsed default on-failure mode.
func (c GenerateConfig) OnFailure() types.OnFailure {
	mode, err := types.ParseOnFailure(c.DefaultOnFailure)
	if err != nil || mode == types.OnFailureInherit {
		return types.OnFailureContinue
	}
	return mode
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedactURL hides the password of a database URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
