/*
Package config loads process settings from the environment.

SOURCES (later wins):
  1. .env file in the working directory, when present
  2. Process environment

  Missing .env is not an error. Invalid values are.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	HTTPAddr string `env:"POKERPAL_HTTP_ADDR" envDefault:":8080"`

	Storage    string `env:"POKERPAL_STORAGE" envDefault:"memory"`
	SQLitePath string `env:"POKERPAL_SQLITE_PATH" envDefault:"pokerpal.db"`
	RedisURL   string `env:"POKERPAL_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	ExitPolicy string `env:"POKERPAL_EXIT_POLICY" envDefault:"forfeit"`
	Timezone   string `env:"POKERPAL_TIMEZONE" envDefault:"Local"`

	DiscordToken    string `env:"DISCORD_TOKEN"`
	RocketChatToken string `env:"ROCKET_CHAT_TOKEN"`

	SheetsID           string        `env:"GOOGLE_SHEETS_ID"`
	ServiceAccountFile string        `env:"GOOGLE_SERVICE_ACCOUNT_FILE" envDefault:"service-account.json"`
	SheetsTimeout      time.Duration `env:"POKERPAL_SHEETS_TIMEOUT" envDefault:"10s"`
	SheetsMaxTries     uint          `env:"POKERPAL_SHEETS_MAX_TRIES" envDefault:"4"`
	FlushInterval      time.Duration `env:"POKERPAL_FLUSH_INTERVAL" envDefault:"1m"`
	FlushBudget        time.Duration `env:"POKERPAL_FLUSH_BUDGET" envDefault:"8s"` // per command, before replying

	LogLevel string `env:"POKERPAL_LOG_LEVEL" envDefault:"info"`
	Demo     bool   `env:"POKERPAL_DEMO"` // mount /api/scenarios
}

// Load reads envPath (skipped when it does not exist), then the environment.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("POKERPAL_STORAGE: unknown backend %q (want memory, sqlite or redis)", c.Storage)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("POKERPAL_EXIT_POLICY: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("POKERPAL_TIMEZONE: %w", err)
	}
	if c.SheetsMaxTries == 0 {
		return errors.New("POKERPAL_SHEETS_MAX_TRIES: must be at least 1")
	}
	if c.FlushInterval <= 0 {
		return errors.New("POKERPAL_FLUSH_INTERVAL: must be positive")
	}
	if c.FlushBudget <= 0 {
		return errors.New("POKERPAL_FLUSH_BUDGET: must be positive")
	}
	return nil
}

func (c *Config) Policy() (poker.ExitPolicy, error) {
	return poker.ParseExitPolicy(c.ExitPolicy)
}

// Location is the zone that decides a session's date.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SheetsEnabled reports whether a spreadsheet is configured.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsID != ""
}
