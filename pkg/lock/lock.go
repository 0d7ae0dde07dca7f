// Package lock serializes syncs of the same project with an advisory file
// lock, so a second invocation never observes half-applied backups or state.
package lock

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// retryDelay is how often a waiting Acquire retries the lock.
const retryDelay = 100 * time.Millisecond

// Lock is a held project lock.
type Lock struct {
	fl     *flock.Flock
	logger zerolog.Logger
}

// Acquire takes the lock at path. With wait <= 0 it fails at once with
// LOCK_HELD if another process holds it; otherwise it retries until wait
// elapses or ctx is done.
func Acquire(ctx context.Context, path string, wait time.Duration) (*Lock, error) {
	logger := logging.GetLogger("lock")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockAcquire, "cannot create lock directory for %s", path).
			WithDetail("path", path)
	}

	fl := flock.New(path)

	var (
		ok  bool
		err error
	)
	if wait <= 0 {
		ok, err = fl.TryLock()
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		ok, err = fl.TryLockContext(waitCtx, retryDelay)
		if err != nil && stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = nil
		}
	}

	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockAcquire, "failed to acquire lock %s", path).
			WithDetail("path", path)
	}
	if !ok {
		return nil, errors.New(errors.ErrLockHeld, "another sync is already running for this project").
			WithDetail("path", path)
	}

	logger.Debug().Str("path", path).Msg("Project lock acquired")
	return &Lock{fl: fl, logger: logger}, nil
}

// Path is the lock file.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. The lock file itself stays in place; removing it
// would let two processes lock different inodes under the same name.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return errors.Wrapf(err, errors.ErrLockAcquire, "failed to release lock %s", l.fl.Path())
	}
	l.logger.Debug().Str("path", l.fl.Path()).Msg("Project lock released")
	return nil
}
