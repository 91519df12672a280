package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"pomodoro/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Namespaces used by the application components.
const (
	NamespaceTimer   = "timer"
	NamespaceSession = "session"
	NamespaceStats   = "stats"
	NamespaceUI      = "ui"
	NamespaceNotify  = "notify"
)

// Bucket scopes a Store to a namespace and applies the failure policy:
// unreadable or corrupt values fall back to a default and are logged once
// per key, write failures are logged once per key and returned.
type Bucket struct {
	store     Store
	namespace string
	logger    logrus.FieldLogger

	mu     sync.Mutex
	warned map[string]bool
}

// NewBucket creates a namespaced view of store.
func NewBucket(store Store, namespace string, logger logrus.FieldLogger) *Bucket {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bucket{
		store:     store,
		namespace: namespace,
		logger:    logger.WithField("namespace", namespace),
		warned:    make(map[string]bool),
	}
}

// Key returns the full store key for name.
func (bucket *Bucket) Key(name string) string {
	return bucket.namespace + "." + name
}

// String loads a raw value. Read failures are reported as absent.
func (bucket *Bucket) String(ctx context.Context, name string) (string, bool) {
	value, found, err := bucket.store.Get(ctx, bucket.Key(name))
	if err != nil {
		bucket.warnOnce(name, "get", err)
		return "", false
	}
	return value, found
}

// SetString stores a raw value.
func (bucket *Bucket) SetString(ctx context.Context, name, value string) error {
	if err := bucket.store.Set(ctx, bucket.Key(name), value); err != nil {
		bucket.warnOnce(name, "set", err)
		return fmt.Errorf("set %s: %w", bucket.Key(name), err)
	}
	return nil
}

// Int loads a decimal integer, returning fallback when absent or corrupt.
func (bucket *Bucket) Int(ctx context.Context, name string, fallback int) int {
	value, found := bucket.String(ctx, name)
	if !found {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		bucket.warnOnce(name, "decode", err)
		return fallback
	}
	return parsed
}

// SetInt stores a decimal integer.
func (bucket *Bucket) SetInt(ctx context.Context, name string, value int) error {
	return bucket.SetString(ctx, name, strconv.Itoa(value))
}

// Int64 loads a decimal int64.
func (bucket *Bucket) Int64(ctx context.Context, name string) (int64, bool) {
	value, found := bucket.String(ctx, name)
	if !found {
		return 0, false
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		bucket.warnOnce(name, "decode", err)
		return 0, false
	}
	return parsed, true
}

// SetInt64 stores a decimal int64.
func (bucket *Bucket) SetInt64(ctx context.Context, name string, value int64) error {
	return bucket.SetString(ctx, name, strconv.FormatInt(value, 10))
}

// JSON decodes a JSON value into target. It reports false when the value is
// absent or cannot be decoded.
func (bucket *Bucket) JSON(ctx context.Context, name string, target any) bool {
	value, found := bucket.String(ctx, name)
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		bucket.warnOnce(name, "decode", err)
		return false
	}
	return true
}

// SetJSON stores value as JSON.
func (bucket *Bucket) SetJSON(ctx context.Context, name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket.Key(name), err)
	}
	return bucket.SetString(ctx, name, string(encoded))
}

func (bucket *Bucket) warnOnce(name, operation string, err error) {
	metrics.RecordStoreError(bucket.namespace, operation)

	bucket.mu.Lock()
	mark := operation + ":" + name
	seen := bucket.warned[mark]
	bucket.warned[mark] = true
	bucket.mu.Unlock()
	if seen {
		return
	}

	bucket.logger.WithFields(logrus.Fields{
		"key":       bucket.Key(name),
		"operation": operation,
	}).Warnf("store %s failed, using default: %v", operation, err)
}
