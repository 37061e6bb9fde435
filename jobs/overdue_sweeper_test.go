package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMarker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *countingMarker) MarkOverdue(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return 3, nil
}

func (m *countingMarker) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLock) TryLock(context.Context) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2025, time.March, 10, 23, 59, 59, 0, time.Local)
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.Local), nextMidnight(now))

	endOfMonth := time.Date(2025, time.January, 31, 8, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.Local), nextMidnight(endOfMonth))
}

func TestOverdueSweeper_FiresAtMidnightThenEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 22, 0, 0, 0, time.Local))
	marker := &countingMarker{}
	sweeper := NewOverdueSweeper(marker, nil, clock, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Hour + 59*time.Minute)
	assert.Zero(t, marker.count(), "must not fire before midnight")

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return marker.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(23 * time.Hour)
	assert.Never(t, func() bool { return marker.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return marker.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestOverdueSweeper_KeepsRunningAfterFailure(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 10, 23, 0, 0, 0, time.Local))
	marker := &countingMarker{err: errors.New("db down")}
	sweeper := NewOverdueSweeper(marker, nil, clock, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return marker.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return marker.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSweepNow_SkipsWhenLockHeld(t *testing.T) {
	marker := &countingMarker{}
	lock := &fakeLock{held: true}
	sweeper := NewOverdueSweeper(marker, lock, clockwork.NewFakeClock(), 0)

	n, err := sweeper.SweepNow(context.Background())

	require.ErrorIs(t, err, ErrLockHeld)
	assert.Zero(t, n)
	assert.Zero(t, marker.count())
}

func TestSweepNow_ReleasesLock(t *testing.T) {
	marker := &countingMarker{}
	lock := &fakeLock{}
	sweeper := NewOverdueSweeper(marker, lock, clockwork.NewFakeClock(), 0)

	n, err := sweeper.SweepNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.released)
}

func TestSweepNow_LockErrorStillSweeps(t *testing.T) {
	marker := &countingMarker{}
	lock := &fakeLock{err: errors.New("redis unreachable")}
	sweeper := NewOverdueSweeper(marker, lock, clockwork.NewFakeClock(), 0)

	n, err := sweeper.SweepNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, marker.count())
}

func TestSweepNow_PropagatesMarkError(t *testing.T) {
	boom := errors.New("db down")
	sweeper := NewOverdueSweeper(&countingMarker{err: boom}, &fakeLock{}, clockwork.NewFakeClock(), 0)

	_, err := sweeper.SweepNow(context.Background())
	require.ErrorIs(t, err, boom)
}
