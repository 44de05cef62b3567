// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/chess-session-backend/internal/hub"
	"github.com/DoyleJ11/chess-session-backend/internal/room"
	"github.com/DoyleJ11/chess-session-backend/internal/session"
)

type Config struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	OriginPatterns []string `env:"ORIGIN_PATTERNS" envSeparator:","`

	MaxSessions   int `env:"MAX_SESSIONS" envDefault:"1000"`
	MaxSpectators int `env:"MAX_SPECTATORS" envDefault:"32"`
	OutboxSize    int `env:"OUTBOX_SIZE" envDefault:"32"`

	ClockInitial time.Duration `env:"CLOCK_INITIAL" envDefault:"10m"`
	ClockMode    string        `env:"CLOCK_MODE" envDefault:"continuous"`
	ClockTick    time.Duration `env:"CLOCK_TICK" envDefault:"250ms"`

	DisconnectPolicy string        `env:"DISCONNECT_POLICY" envDefault:"grace"`
	GracePeriod      time.Duration `env:"GRACE_PERIOD" envDefault:"30s"`

	GCInterval   time.Duration `env:"GC_INTERVAL" envDefault:"1m"`
	CompletedTTL time.Duration `env:"COMPLETED_TTL" envDefault:"10m"`
	InactiveTTL  time.Duration `env:"INACTIVE_TTL" envDefault:"30m"`
	MaxTTL       time.Duration `env:"MAX_TTL" envDefault:"6h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// ArchiveDSN enables the postgres result archive when set.
	ArchiveDSN string `env:"ARCHIVE_DSN"`
}

// Load reads dotenv files (missing ones are skipped) and parses the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

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
	var err error
	if _, perr := session.ParsePolicy(c.DisconnectPolicy); perr != nil {
		err = multierr.Append(err, perr)
	}
	switch room.ClockMode(c.ClockMode) {
	case room.Continuous, room.PerMove:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown clock mode %q", c.ClockMode))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	positive := map[string]time.Duration{
		"CLOCK_INITIAL": c.ClockInitial,
		"CLOCK_TICK":    c.ClockTick,
		"GRACE_PERIOD":  c.GracePeriod,
		"GC_INTERVAL":   c.GCInterval,
		"COMPLETED_TTL": c.CompletedTTL,
		"INACTIVE_TTL":  c.InactiveTTL,
		"MAX_TTL":       c.MaxTTL,
	}
	for name, d := range positive {
		if d <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	for name, n := range map[string]int{"MAX_SESSIONS": c.MaxSessions, "OUTBOX_SIZE": c.OutboxSize} {
		if n <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive, got %d", name, n))
		}
	}
	if c.MaxSpectators < 0 {
		err = multierr.Append(err, fmt.Errorf("MAX_SPECTATORS must not be negative, got %d", c.MaxSpectators))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Hub maps the settings onto the registry and room configuration.
func (c Config) Hub() hub.Config {
	return hub.Config{
		MaxSessions: c.MaxSessions,
		GCInterval:  c.GCInterval,
		TTL: hub.TTLs{
			Completed: c.CompletedTTL,
			Inactive:  c.InactiveTTL,
			Max:       c.MaxTTL,
		},
		Room: room.Config{
			MaxSpectators: c.MaxSpectators,
			Policy:        session.Policy(c.DisconnectPolicy),
			GracePeriod:   c.GracePeriod,
			ClockInitial:  c.ClockInitial,
			ClockMode:     room.ClockMode(c.ClockMode),
			ClockTick:     c.ClockTick,
		},
	}
}
