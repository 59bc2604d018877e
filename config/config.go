// Package config loads runtime settings from the environment.
//
// An optional .env file in the working directory is read first, then
// LIBRARY_* variables are mapped onto Config. Real environment variables
// always win over .env entries.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"library-lending/library"
)

// Config holds all runtime configuration for the CLI and the HTTP server.
type Config struct {
	DBPath string `env:"LIBRARY_DB_PATH" envDefault:"library.db"`

	LogLevel  string `env:"LIBRARY_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LIBRARY_LOG_FORMAT" envDefault:"text"`

	HTTPAddr        string        `env:"LIBRARY_HTTP_ADDR"        envDefault:":8080"`
	RateLimitRPS    float64       `env:"LIBRARY_RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst  int           `env:"LIBRARY_RATE_LIMIT_BURST" envDefault:"40"`
	ShutdownTimeout time.Duration `env:"LIBRARY_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PasswordScheme is "plain" or "bcrypt".
	PasswordScheme string `env:"LIBRARY_PASSWORD_SCHEME" envDefault:"plain"`
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return Parse(env.Options{})
}

// Parse maps the environment (or opts.Environment when set) onto a Config
// and validates it.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("LIBRARY_DB_PATH must not be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if _, err := library.PasswordSchemeByName(c.PasswordScheme); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Passwords returns the configured password scheme.
func (c *Config) Passwords() library.PasswordScheme {
	s, err := library.PasswordSchemeByName(c.PasswordScheme)
	if err != nil {
		return library.PlainPasswords{}
	}
	return s
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing to w.
func NewLogger(c *Config, w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("app", "library"))
}
