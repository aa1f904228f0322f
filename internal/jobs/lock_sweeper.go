package jobs

import (
	"context"
	"log/slog"
	"time"
)

// LockSweepService removes expired draft locks
type LockSweepService interface {
	Sweep(ctx context.Context) (int, error)
}

// LockSweeper periodically purges expired draft locks. Expired locks are
// already ignored on read; sweeping only reclaims their storage.
type LockSweeper struct {
	*periodic
	locks LockSweepService
}

// NewLockSweeper creates a new lock sweeper job
func NewLockSweeper(locks LockSweepService, interval time.Duration, logger *slog.Logger) *LockSweeper {
	if interval == 0 {
		interval = time.Minute
	}
	s := &LockSweeper{locks: locks}
	s.periodic = newPeriodic("lock_sweeper", interval, s.RunOnce, logger)
	return s
}

// RunOnce sweeps once
func (s *LockSweeper) RunOnce(ctx context.Context) error {
	n, err := s.locks.Sweep(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("expired draft locks swept", slog.Int("count", n))
	}
	return nil
}
