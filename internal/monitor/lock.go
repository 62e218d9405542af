package monitor

import (
	"context"
	"errors"
	"fmt"
)

// ErrPassLocked is returned by LockedRunner when another process holds the
// pass lock.
var ErrPassLocked = errors.New("another pass holds the pass lock")

// Locker is a non-blocking cross-process mutex.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// LockedRunner runs passes only while holding lock, so the API scheduler and
// `watchctl pass` never check the same watches at the same time.
type LockedRunner struct {
	runner PassRunner
	lock   Locker
}

// NewLockedRunner wraps runner with lock.
func NewLockedRunner(runner PassRunner, lock Locker) *LockedRunner {
	return &LockedRunner{runner: runner, lock: lock}
}

// RunPass implements PassRunner.
func (l *LockedRunner) RunPass(ctx context.Context) (*PassResult, error) {
	release, ok, err := l.lock.TryLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return nil, ErrPassLocked
	}
	defer release()
	return l.runner.RunPass(ctx)
}
