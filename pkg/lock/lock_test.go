package lock_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "project.lock")

	l, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	assert.FileExists(t, path)

	require.NoError(t, l.Release())

	again, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err, "a released lock can be taken again")
	require.NoError(t, again.Release())
}

func TestAcquire_ContentionFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.lock")

	held, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	start := time.Now()
	_, err = lock.Acquire(context.Background(), path, 0)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLockHeld))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAcquire_WaitTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.lock")

	held, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	_, err = lock.Acquire(context.Background(), path, 250*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLockHeld))
}

func TestAcquire_WaitSucceedsAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.lock")

	held, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = held.Release()
	}()

	l, err := lock.Acquire(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquire_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.lock")

	held, err := lock.Acquire(context.Background(), path, 0)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = lock.Acquire(ctx, path, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLockAcquire))
}
