package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how long TryLockContext waits between attempts.
const lockRetryDelay = 50 * time.Millisecond

// ErrLockTimeout is returned when the lock could not be acquired before the
// context was done.
var ErrLockTimeout = errors.New("timed out waiting for project lock")

// LockFile acquires an exclusive advisory lock on path, waiting until ctx is
// done. It returns an unlock function that must be called to release it.
func LockFile(ctx context.Context, path string) (unlock func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring %s: %w", path, ErrLockTimeout)
		}
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring %s: %w", path, ErrLockTimeout)
	}

	return fl.Unlock, nil
}
