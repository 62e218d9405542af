package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/seatwatch/internal/watch"
)

// memLocker is a process-local Locker shared between runners the way two
// processes share one advisory lock.
type memLocker struct {
	mu       sync.Mutex
	held     bool
	releases int
	err      error
}

func (m *memLocker) TryLock(ctx context.Context) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	if m.held {
		return nil, false, nil
	}
	m.held = true
	return func() {
		m.mu.Lock()
		m.held = false
		m.releases++
		m.mu.Unlock()
	}, true, nil
}

func TestLockedRunnerReleasesAfterPass(t *testing.T) {
	lock := &memLocker{}
	runner := &countingRunner{}
	lr := NewLockedRunner(runner, lock)

	_, err := lr.RunPass(context.Background())
	require.NoError(t, err)
	_, err = lr.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), runner.passes.Load())
	assert.Equal(t, 2, lock.releases)
	assert.False(t, lock.held)
}

func TestLockedRunnerRefusesWhileAnotherPassHoldsLock(t *testing.T) {
	ctx := context.Background()
	lock := &memLocker{}

	// a manual pass holds the lock
	manual := newBlockingRunner()
	done := make(chan error)
	go func() {
		_, err := NewLockedRunner(manual, lock).RunPass(ctx)
		done <- err
	}()
	<-manual.started

	scheduled := &countingRunner{}
	_, err := NewLockedRunner(scheduled, lock).RunPass(ctx)
	assert.ErrorIs(t, err, ErrPassLocked)
	assert.Equal(t, int32(0), scheduled.passes.Load())

	close(manual.release)
	require.NoError(t, <-done)

	_, err = NewLockedRunner(scheduled, lock).RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), scheduled.passes.Load())
}

func TestLockedRunnerWrapsLockErrors(t *testing.T) {
	boom := errors.New("connection refused")
	runner := &countingRunner{}
	_, err := NewLockedRunner(runner, &memLocker{err: boom}).RunPass(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPassLocked)
	assert.Equal(t, int32(0), runner.passes.Load())
}

func TestTickCountsSkipWhenPassLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	lock := &memLocker{held: true}
	runner := &countingRunner{}
	s := NewScheduler(NewLockedRunner(runner, lock), watch.NewMemoryStore(), testSchedulerConfig(), quietLogger())

	assert.False(t, s.Tick(ctx))
	assert.False(t, s.Running())
	assert.Equal(t, int32(0), runner.passes.Load())

	st := s.Status()
	assert.Equal(t, int64(1), st.SkippedTicks)
	assert.Nil(t, st.LastPassAt, "a locked-out tick is not a pass")

	lock.held = false
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, int32(1), runner.passes.Load())
}
