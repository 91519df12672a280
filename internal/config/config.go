package config

import "time"

// Config holds runtime options read from the environment. A .env file in the
// working directory is loaded first when present.
type Config struct {
	Store   string `env:"POMODORO_STORE" envDefault:"yaml"`
	DataDir string `env:"POMODORO_DATA_DIR"`

	RedisAddr     string `env:"POMODORO_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"POMODORO_REDIS_PASSWORD"`
	RedisDB       int    `env:"POMODORO_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"POMODORO_REDIS_PREFIX" envDefault:"pomodoro:"`

	SQLitePath  string `env:"POMODORO_SQLITE_PATH"`
	PostgresDSN string `env:"POMODORO_POSTGRES_DSN"`

	// StoreRetries bounds connection attempts for network backends.
	StoreRetries int `env:"POMODORO_STORE_RETRIES" envDefault:"5"`

	LogLevel string `env:"POMODORO_LOG_LEVEL" envDefault:"info"`

	// IdleAfter pauses session tracking once the user has been idle this long.
	// Zero disables idle detection.
	IdleAfter time.Duration `env:"POMODORO_IDLE_AFTER" envDefault:"5m"`
	IdleCheck time.Duration `env:"POMODORO_IDLE_CHECK" envDefault:"5s"`

	Autostart bool `env:"POMODORO_AUTOSTART" envDefault:"false"`
}
