package platform

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondAcquireFails(t *testing.T) {
	name := fmt.Sprintf("pomodoro-test-%s", uuid.NewString())

	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	defer guard.Release()

	_, err = AcquireSingleInstance(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	name := fmt.Sprintf("pomodoro-test-%s", uuid.NewString())

	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	require.NoError(t, guard.Release())

	again, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestNotifyRunningRaisesHolder(t *testing.T) {
	name := fmt.Sprintf("pomodoro-test-%s", uuid.NewString())

	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	defer guard.Release()

	shown := make(chan struct{}, 1)
	guard.OnShow(func() { shown <- struct{}{} })

	require.NoError(t, NotifyRunning(name))
	select {
	case <-shown:
	case <-time.After(2 * time.Second):
		t.Fatal("running instance was not asked to show")
	}
}

func TestNotifyRunningWithoutHolder(t *testing.T) {
	name := fmt.Sprintf("pomodoro-test-%s", uuid.NewString())
	guard, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	require.NoError(t, guard.Release())

	assert.Error(t, NotifyRunning(name))
}

func TestPortFromName(t *testing.T) {
	port := portFromName("Pomodoro")
	assert.Equal(t, port, portFromName("pomodoro"))
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 39999)
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), instanceAddress("Pomodoro"))
}

func TestNilGuard(t *testing.T) {
	var guard *InstanceGuard
	assert.NoError(t, guard.Release())
	assert.Empty(t, guard.Address())
}
