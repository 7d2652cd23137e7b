// Package config reads bot settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string `env:"BOT_TOKEN"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"."`

	// DatabaseURL selects Postgres. Without it the bot uses SQLitePath.
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"skyrush.db"`
	RedisURL    string `env:"REDIS_URL"`

	Port          string `env:"PORT" envDefault:"8080"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	OpTimeout       time.Duration `env:"OP_TIMEOUT" envDefault:"5s"`
	RateLimitPerSec float64       `env:"RATE_LIMIT_PER_SEC" envDefault:"2"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"4"`
}

// Load reads .env when present and then parses the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.OpTimeout <= 0 {
		return fmt.Errorf("OP_TIMEOUT must be positive, got %s", c.OpTimeout)
	}
	if c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %.2f/s burst %d", c.RateLimitPerSec, c.RateLimitBurst)
	}
	if c.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	return nil
}

// UsePostgres reports whether DATABASE_URL was given.
func (c Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
