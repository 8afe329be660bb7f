// Package config assembles settings from an optional .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is the full configuration surface of the server.
type Config struct {
	DBPath    string
	Addr      string
	JWTSecret string
	LogLevel  string

	// ReportSchedule is a five-field cron expression. Empty disables the report.
	ReportSchedule string
	// ExpiryWindow is how far ahead the report looks for expiring food.
	ExpiryWindow time.Duration
}

// Load reads environment variables, optionally seeded from envFile (or
// ./.env when envFile is empty). A missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	window, err := time.ParseDuration(getenvWithDefault("SHRAMBA_EXPIRY_WINDOW", "72h"))
	if err != nil {
		return nil, fmt.Errorf("parsing SHRAMBA_EXPIRY_WINDOW: %w", err)
	}

	return &Config{
		DBPath:         getenvWithDefault("SHRAMBA_DB", "shramba.sqlite3"),
		Addr:           getenvWithDefault("SHRAMBA_ADDR", ":8080"),
		JWTSecret:      os.Getenv("SHRAMBA_JWT_SECRET"),
		LogLevel:       getenvWithDefault("SHRAMBA_LOG_LEVEL", "info"),
		ReportSchedule: getenvWithDefault("SHRAMBA_REPORT_SCHEDULE", "0 7 * * *"),
		ExpiryWindow:   window,
	}, nil
}

// BindFlags registers short and long flags that override the loaded values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "")
	fs.StringVar(&c.DBPath, "d", c.DBPath, "")

	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "")
}

// Validate checks that required settings are present and well formed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DBPath == "" {
		return errors.New("database path must be provided")
	}
	if c.Addr == "" {
		return errors.New("listen address must be provided")
	}
	if c.ReportSchedule != "" {
		if _, err := cron.ParseStandard(c.ReportSchedule); err != nil {
			return fmt.Errorf("invalid report schedule %q: %w", c.ReportSchedule, err)
		}
	}
	if c.ExpiryWindow <= 0 {
		return errors.New("expiry window must be positive")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
