package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pomodoro/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POMODORO_STORE", "")
	os.Unsetenv("POMODORO_STORE")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, storage.BackendYAML, cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "pomodoro:", cfg.RedisPrefix)
	assert.Equal(t, 5, cfg.StoreRetries)
	assert.Equal(t, 5*time.Minute, cfg.IdleAfter)
	assert.Equal(t, 5*time.Second, cfg.IdleCheck)
	assert.False(t, cfg.Autostart)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("POMODORO_STORE", " Redis ")
	t.Setenv("POMODORO_REDIS_ADDR", "cache:6380")
	t.Setenv("POMODORO_REDIS_DB", "2")
	t.Setenv("POMODORO_IDLE_AFTER", "90s")
	t.Setenv("POMODORO_LOG_LEVEL", "debug")
	t.Setenv("POMODORO_AUTOSTART", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, storage.BackendRedis, cfg.Store)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.IdleAfter)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.True(t, cfg.Autostart)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	t.Setenv("POMODORO_SQLITE_PATH", "")
	os.Unsetenv("POMODORO_SQLITE_PATH")
	t.Cleanup(func() { os.Unsetenv("POMODORO_SQLITE_PATH") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POMODORO_SQLITE_PATH=/tmp/pomodoro.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pomodoro.db", cfg.SQLitePath)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	t.Setenv("POMODORO_STORE_RETRIES", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:        storage.BackendYAML,
			RedisAddr:    "localhost:6379",
			StoreRetries: 5,
			LogLevel:     "info",
			IdleAfter:    5 * time.Minute,
			IdleCheck:    5 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory", func(c *Config) { c.Store = storage.BackendMemory }, false},
		{"unknown backend", func(c *Config) { c.Store = "etcd" }, true},
		{"redis without addr", func(c *Config) { c.Store = storage.BackendRedis; c.RedisAddr = "" }, true},
		{"redis negative db", func(c *Config) { c.Store = storage.BackendRedis; c.RedisDB = -1 }, true},
		{"postgres without dsn", func(c *Config) { c.Store = storage.BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) { c.Store = storage.BackendPostgres; c.PostgresDSN = "postgres://localhost/pomodoro" }, false},
		{"negative retries", func(c *Config) { c.StoreRetries = -1 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"negative idle", func(c *Config) { c.IdleAfter = -time.Second }, true},
		{"idle without check", func(c *Config) { c.IdleCheck = 0 }, true},
		{"idle disabled", func(c *Config) { c.IdleAfter = 0; c.IdleCheck = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnknownBackendWrapsSentinel(t *testing.T) {
	cfg := Config{Store: "etcd", LogLevel: "info"}
	assert.ErrorIs(t, cfg.Validate(), storage.ErrUnknownBackend)
}

func TestStoreOptions(t *testing.T) {
	configDir := filepath.Join("home", "user", ".config")

	cfg := Config{Store: storage.BackendSQLite, StoreRetries: 3, RedisPrefix: "p:"}
	options := cfg.StoreOptions(configDir)
	assert.Equal(t, storage.BackendSQLite, options.Backend)
	assert.Equal(t, filepath.Join(configDir, AppName, "store.yaml"), options.YAMLPath)
	assert.Equal(t, filepath.Join(configDir, AppName, "store.db"), options.SQLitePath)
	assert.Equal(t, uint64(3), options.MaxRetries)
	assert.Equal(t, "p:", options.RedisPrefix)

	cfg.DataDir = filepath.Join("var", "pomodoro")
	cfg.SQLitePath = filepath.Join("srv", "custom.db")
	options = cfg.StoreOptions(configDir)
	assert.Equal(t, filepath.Join("var", "pomodoro", "store.yaml"), options.YAMLPath)
	assert.Equal(t, filepath.Join("srv", "custom.db"), options.SQLitePath)
}
