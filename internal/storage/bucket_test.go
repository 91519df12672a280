package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	getErr error
	setErr error
}

func (store failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, store.getErr
}

func (store failingStore) Set(context.Context, string, string) error {
	return store.setErr
}

func TestBucketNamespacesKeys(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()
	timer := NewBucket(memory, NamespaceTimer, nil)
	session := NewBucket(memory, NamespaceSession, nil)

	require.NoError(t, timer.SetInt(ctx, "count", 3))
	require.NoError(t, session.SetInt(ctx, "count", 7))

	assert.Equal(t, 3, timer.Int(ctx, "count", 0))
	assert.Equal(t, 7, session.Int(ctx, "count", 0))
	assert.ElementsMatch(t, []string{"timer.count", "session.count"}, memory.Keys())
}

func TestBucketIntFallbacks(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()
	logger, hook := test.NewNullLogger()
	bucket := NewBucket(memory, NamespaceTimer, logger)

	assert.Equal(t, 5, bucket.Int(ctx, "missing", 5))
	assert.Empty(t, hook.AllEntries())

	require.NoError(t, memory.Set(ctx, "timer.corrupt", "twelve"))
	assert.Equal(t, 0, bucket.Int(ctx, "corrupt", 0))
	assert.Equal(t, 0, bucket.Int(ctx, "corrupt", 0))

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "timer.corrupt", hook.LastEntry().Data["key"])
}

func TestBucketReadFailureLogsOnce(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	bucket := NewBucket(failingStore{getErr: errors.New("connection refused")}, NamespaceSession, logger)

	for i := 0; i < 3; i++ {
		_, found := bucket.Int64(ctx, "start")
		assert.False(t, found)
	}
	assert.Len(t, hook.AllEntries(), 1)
}

func TestBucketWriteFailure(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	bucket := NewBucket(failingStore{setErr: errors.New("read-only")}, NamespaceTimer, logger)

	err := bucket.SetInt(ctx, "completed_sessions", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timer.completed_sessions")

	_ = bucket.SetInt(ctx, "completed_sessions", 2)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestBucketJSON(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()
	bucket := NewBucket(memory, NamespaceUI, nil)

	var dark bool
	assert.False(t, bucket.JSON(ctx, "dark_mode", &dark))

	require.NoError(t, bucket.SetJSON(ctx, "dark_mode", true))
	value, _, _ := memory.Get(ctx, "ui.dark_mode")
	assert.Equal(t, "true", value)
	require.True(t, bucket.JSON(ctx, "dark_mode", &dark))
	assert.True(t, dark)

	require.NoError(t, memory.Set(ctx, "ui.dark_mode", "{not json"))
	assert.False(t, bucket.JSON(ctx, "dark_mode", &dark))
}
