package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store backends
const (
	StoreNone     = "none"
	StoreFile     = "file"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Step sinks
const (
	SinkNone  = "none"
	SinkFile  = "file"
	SinkRedis = "redis"
)

// Config holds the backend settings of the stepgraph CLI
type Config struct {
	LogLevel  string `env:"STEPGRAPH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"STEPGRAPH_LOG_FORMAT" envDefault:"text"`

	Store StoreConfig
	Steps StepsConfig
}

// StoreConfig selects where graphs are saved
type StoreConfig struct {
	Backend string `env:"STEPGRAPH_STORE" envDefault:"file"`

	// Dir is the file store directory. Empty selects ~/.stepgraph/graphs.
	Dir string `env:"STEPGRAPH_STORE_DIR"`

	BadgerPath string `env:"STEPGRAPH_BADGER_PATH" envDefault:".stepgraph/badger"`

	PostgresDSN          string `env:"STEPGRAPH_POSTGRES_DSN"`
	PostgresMaxOpenConns int    `env:"STEPGRAPH_POSTGRES_MAX_OPEN_CONNS" envDefault:"5"`
	PostgresMaxIdleConns int    `env:"STEPGRAPH_POSTGRES_MAX_IDLE_CONNS" envDefault:"2"`
}

// StepsConfig selects where traced steps are published
type StepsConfig struct {
	Sink string `env:"STEPGRAPH_STEP_SINK" envDefault:"none"`
	Dir  string `env:"STEPGRAPH_STEP_DIR" envDefault:".stepgraph/steps"`

	Redis RedisConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password     string        `env:"REDIS_PASS"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	StreamPrefix string        `env:"STEPGRAPH_STREAM_PREFIX" envDefault:"stepgraph:steps:"`
	MaxLen       int64         `env:"STEPGRAPH_STREAM_MAXLEN" envDefault:"0"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	switch c.Store.Backend {
	case StoreNone, StoreFile:
	case StoreBadger:
		if c.Store.BadgerPath == "" {
			return fmt.Errorf("badger path is required")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported store: %s", c.Store.Backend)
	}

	switch c.Steps.Sink {
	case SinkNone:
	case SinkFile:
		if c.Steps.Dir == "" {
			return fmt.Errorf("step directory is required for the file sink")
		}
	case SinkRedis:
		if c.Steps.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unsupported step sink: %s", c.Steps.Sink)
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}
