package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"pomodoro/internal/storage"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppName names the per-user data directory and the single instance lock.
const AppName = "Pomodoro"

// Load reads an optional .env file and parses the environment into Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Info("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return cfg, nil
}

// Validate checks ranges and backend specific requirements.
func (c *Config) Validate() error {
	switch c.Store {
	case storage.BackendMemory, storage.BackendYAML, storage.BackendSQLite:
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("POMODORO_REDIS_ADDR is required for the redis store")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("invalid POMODORO_REDIS_DB: %d (must be >= 0)", c.RedisDB)
		}
	case storage.BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POMODORO_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid POMODORO_STORE: %w: %q", storage.ErrUnknownBackend, c.Store)
	}

	if c.StoreRetries < 0 {
		return fmt.Errorf("invalid POMODORO_STORE_RETRIES: %d (must be >= 0)", c.StoreRetries)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid POMODORO_LOG_LEVEL: %w", err)
	}
	if c.IdleAfter < 0 {
		return fmt.Errorf("invalid POMODORO_IDLE_AFTER: %s (must be >= 0)", c.IdleAfter)
	}
	if c.IdleAfter > 0 && c.IdleCheck <= 0 {
		return fmt.Errorf("invalid POMODORO_IDLE_CHECK: %s (must be > 0)", c.IdleCheck)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// StoreOptions translates the config into storage options. configDir is the
// per-user config directory used when POMODORO_DATA_DIR is unset.
func (c *Config) StoreOptions(configDir string) storage.Options {
	dataDir := c.DataDir
	yamlPath := filepath.Join(dataDir, "store.yaml")
	if dataDir == "" {
		dataDir = filepath.Join(configDir, AppName)
		yamlPath = storage.DefaultYAMLPath(configDir, AppName)
	}

	sqlitePath := c.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(dataDir, "store.db")
	}

	return storage.Options{
		Backend:       c.Store,
		YAMLPath:      yamlPath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		SQLitePath:    sqlitePath,
		PostgresDSN:   c.PostgresDSN,
		MaxRetries:    uint64(c.StoreRetries),
	}
}
