// Package config loads service configuration from a YAML file with
// environment-variable overrides. A .env file, if present, is loaded
// first so local development does not need exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Market    MarketConfig    `yaml:"market"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// HTTPConfig bounds the API listener.
type HTTPConfig struct {
	Addr         string  `yaml:"addr"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	RateBurst    int     `yaml:"rate_burst"`
}

// StorageConfig selects the backing store. An empty DSN runs the
// service entirely in memory.
type StorageConfig struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// MarketConfig points at the price feed.
type MarketConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// SchedulerConfig controls the lifecycle sweep.
type SchedulerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load reads the YAML file at path, then applies CONTEST_* environment
// overrides and defaults. A missing file is not an error: everything
// can be configured from the environment alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SweepInterval returns the scheduler interval as a time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONTEST_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CONTEST_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("CONTEST_MIGRATIONS_DIR"); v != "" {
		cfg.Storage.MigrationsDir = v
	}
	if v := os.Getenv("CONTEST_NATS_URL"); v != "" {
		cfg.Market.NATSURL = v
	}
	if v := os.Getenv("CONTEST_PRICE_SUBJECT"); v != "" {
		cfg.Market.Subject = v
	}
	if v := os.Getenv("CONTEST_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.IntervalSeconds = n
		}
	}
	if v := os.Getenv("CONTEST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RateLimitRPS <= 0 {
		cfg.HTTP.RateLimitRPS = 10
	}
	if cfg.HTTP.RateBurst <= 0 {
		cfg.HTTP.RateBurst = 20
	}
	if cfg.Storage.MigrationsDir == "" {
		cfg.Storage.MigrationsDir = "migrations"
	}
	if cfg.Market.NATSURL == "" {
		cfg.Market.NATSURL = "nats://localhost:4222"
	}
	if cfg.Market.Subject == "" {
		cfg.Market.Subject = "market.prices.>"
	}
	if cfg.Scheduler.IntervalSeconds <= 0 {
		cfg.Scheduler.IntervalSeconds = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
