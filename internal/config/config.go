// Package config loads the processing configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds the complete configuration loaded from environment variables.
type Config struct {
	RootPath    string `env:"ROOT_PATH" envDefault:"."`
	RawDir      string `env:"RAW_DIR" envDefault:"data/raw"`
	BandDir     string `env:"BAND_DIR" envDefault:"data/processed"`
	ResultsDir  string `env:"RESULTS_DIR" envDefault:"results"`
	AnalysisDir string `env:"ANALYSIS_DIR" envDefault:"analysis_results"`
	// CacheDir keeps computed index grids between time series runs. Empty
	// disables the cache.
	CacheDir    string `env:"CACHE_DIR"`
	TargetCRS   string `env:"TARGET_CRS" envDefault:"EPSG:32628"`
	Workers     int    `env:"WORKERS" envDefault:"1"`

	Index   IndexConfig
	Logging LoggingConfig `envPrefix:"LOG_"`
	Discord DiscordConfig `envPrefix:"DISCORD_"`
}

// IndexConfig contains spectral index and time series parameters.
type IndexConfig struct {
	SoilFactor     float64 `env:"SOIL_FACTOR" envDefault:"0.5"`
	SpikeThreshold float64 `env:"SPIKE_THRESHOLD" envDefault:"0.3"`
	StdScaleFactor float64 `env:"STD_SCALE_FACTOR" envDefault:"10"`
	StdScale       string  `env:"STD_SCALE" envDefault:"sqrt"`
}

type LoggingConfig struct {
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// DiscordConfig holds webhook URLs. Empty URLs disable notifications.
type DiscordConfig struct {
	ErrorURL   string `env:"ERROR_NOTIFICATION_URL"`
	SuccessURL string `env:"SUCCESS_NOTIFICATION_URL"`
}

// envFiles are tried in order; the first one found is loaded.
var envFiles = []string{".env", "../.env", "../../.env"}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		break
	}
	return Parse()
}

// Parse builds the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Index.SoilFactor < 0 {
		return fmt.Errorf("soil factor must not be negative, got %g", c.Index.SoilFactor)
	}
	if c.Index.StdScale != "sqrt" && c.Index.StdScale != "log" {
		return fmt.Errorf("std scale must be 'sqrt' or 'log', got %q", c.Index.StdScale)
	}
	if c.TargetCRS == "" {
		return errors.New("target CRS is required")
	}
	return nil
}

// Path resolves a configured directory against RootPath.
func (c *Config) Path(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.RootPath, dir)
}
