package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"Gin_postgres_redis_library/metrics"

	"github.com/jonboulle/clockwork"
)

// ErrLockHeld is returned by SweepNow when another process is sweeping.
var ErrLockHeld = errors.New("overdue sweep already running elsewhere")

const (
	DefaultSweepInterval = 24 * time.Hour
	SweepLockName        = "sweep:overdue"
	SweepLockTTL         = 10 * time.Minute
)

type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// RunLock guards a sweep across processes.
type RunLock interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

// OverdueSweeper fires at the next local midnight and then every interval,
// moving expired loans to VENCIDO.
type OverdueSweeper struct {
	loans    OverdueMarker
	lock     RunLock
	clock    clockwork.Clock
	interval time.Duration
}

// NewOverdueSweeper builds a sweeper. lock may be nil for single-instance
// deployments.
func NewOverdueSweeper(loans OverdueMarker, lock RunLock, clock clockwork.Clock, interval time.Duration) *OverdueSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &OverdueSweeper{loans: loans, lock: lock, clock: clock, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *OverdueSweeper) Run(ctx context.Context) {
	next := nextMidnight(s.clock.Now())
	timer := s.clock.NewTimer(next.Sub(s.clock.Now()))
	defer timer.Stop()

	slog.Info("Overdue sweeper started", "first_run", next, "interval", s.interval)

	for {
		select {
		case <-timer.Chan():
			if _, err := s.SweepNow(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
				slog.Error("Overdue sweep failed", "error", err)
			}
			next = next.Add(s.interval)
			if wait := next.Sub(s.clock.Now()); wait > 0 {
				timer.Reset(wait)
			} else {
				// a sweep overran the interval; skip to the next slot
				next = s.clock.Now().Add(s.interval)
				timer.Reset(s.interval)
			}
		case <-ctx.Done():
			slog.Info("Overdue sweeper stopped")
			return
		}
	}
}

// SweepNow runs one sweep synchronously under the run lock.
func (s *OverdueSweeper) SweepNow(ctx context.Context) (int, error) {
	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx)
		switch {
		case err != nil:
			slog.Warn("Sweep lock unavailable, sweeping without it", "error", err)
		case !ok:
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			slog.Info("Overdue sweep skipped, lock held by another instance")
			return 0, ErrLockHeld
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := unlock(releaseCtx); err != nil {
					slog.Warn("Failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	n, err := s.loans.MarkOverdue(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	return n, nil
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
