package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendYAML     = "yaml"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend string

	YAMLPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	SQLitePath  string
	PostgresDSN string

	// MaxRetries bounds connection attempts for network backends.
	MaxRetries uint64
}

// Opened is a Store together with its release function.
type Opened struct {
	Store   Store
	Backend string
	close   func() error
}

// Close releases backend resources.
func (opened *Opened) Close() error {
	if opened == nil || opened.close == nil {
		return nil
	}
	return opened.close()
}

// Open creates the configured Store. Network backends are retried with
// exponential backoff before giving up.
func Open(ctx context.Context, options Options, logger logrus.FieldLogger) (*Opened, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("backend", options.Backend)

	switch options.Backend {
	case BackendMemory:
		return &Opened{Store: NewMemory(), Backend: BackendMemory}, nil
	case BackendYAML, "":
		store, err := OpenYAMLFile(options.YAMLPath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", store.Path()).Debug("yaml store ready")
		return &Opened{Store: store, Backend: BackendYAML}, nil
	case BackendSQLite:
		store, err := OpenSQLite(ctx, options.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: store, Backend: BackendSQLite, close: store.Close}, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         options.RedisAddr,
			Password:     options.RedisPassword,
			DB:           options.RedisDB,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		err := retry(ctx, options.MaxRetries, func() error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warnf("redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store := NewRedis(client, options.RedisPrefix)
		return &Opened{Store: store, Backend: BackendRedis, close: store.Close}, nil
	case BackendPostgres:
		var store *SQL
		err := retry(ctx, options.MaxRetries, func() error {
			opened, err := OpenPostgres(ctx, options.PostgresDSN)
			if err != nil {
				logger.Warnf("postgres connection failed: %v, retrying...", err)
				return err
			}
			store = opened
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Opened{Store: store, Backend: BackendPostgres, close: store.Close}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, options.Backend)
}

func retry(ctx context.Context, maxRetries uint64, operation func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}
