// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	DBPath        string        `env:"PANTHEON_DB_PATH" envDefault:"data/pantheon.db" validate:"required"`
	APIPort       int           `env:"PANTHEON_API_PORT" envDefault:"8080" validate:"min=1,max=65535"`
	AdminKey      string        `env:"PANTHEON_ADMIN_KEY"`
	LogLevel      string        `env:"PANTHEON_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	TickInterval  time.Duration `env:"PANTHEON_TICK_INTERVAL" envDefault:"1s" validate:"min=10ms"`
	SweepEvery    uint64        `env:"PANTHEON_SWEEP_EVERY_TICKS" envDefault:"60" validate:"min=1"`
	SaveSchedule  string        `env:"PANTHEON_SAVE_SCHEDULE" envDefault:"@every 5m" validate:"required"`
	CommandRate   float64       `env:"PANTHEON_COMMAND_RATE" envDefault:"5" validate:"gt=0"`
	CommandBurst  int           `env:"PANTHEON_COMMAND_BURST" envDefault:"10" validate:"min=1"`
	ShutdownGrace time.Duration `env:"PANTHEON_SHUTDOWN_GRACE" envDefault:"10s"`
	CORSOrigins   []string      `env:"PANTHEON_CORS_ORIGINS" envSeparator:","`
}

var validate = validator.New()

// Load reads an optional .env file, then the environment, and validates the result.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
