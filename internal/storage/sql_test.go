package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteGetSet(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "pomodoro.db"))
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.Get(ctx, "timer.completed_sessions")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "timer.completed_sessions", "1"))
	require.NoError(t, store.Set(ctx, "timer.completed_sessions", "2"))

	value, found, err := store.Get(ctx, "timer.completed_sessions")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", value)
}

func TestSQLiteReopenKeepsValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pomodoro.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "ui.dark_mode", "true"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "ui.dark_mode")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "true", value)
}

func TestSQLPostgresDialectWithMock(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQL(ctx, db, DialectPostgres)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT value FROM kv_store WHERE key =").
		WithArgs("session.elapsed").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("61"))
	value, found, err := store.Get(ctx, "session.elapsed")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "61", value)

	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("session.elapsed", "62").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Set(ctx, "session.elapsed", "62"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQL(ctx, db, DialectSQLite)
	require.NoError(t, err)

	diskErr := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT value FROM kv_store").WillReturnError(diskErr)
	_, found, err := store.Get(ctx, "timer.completed_sessions")
	assert.False(t, found)
	assert.ErrorIs(t, err, diskErr)

	mock.ExpectExec("INSERT INTO kv_store").WillReturnError(diskErr)
	assert.ErrorIs(t, store.Set(ctx, "timer.completed_sessions", "3"), diskErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLCreateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	_, err = NewSQL(context.Background(), db, DialectPostgres)
	assert.Error(t, err)
}
