package activity

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepBatch = 500

// StaleContactLister finds contacts whose stored strength may have decayed.
type StaleContactLister interface {
	ListStaleContactIDs(ctx context.Context, updatedBefore time.Time, limit int) ([]string, error)
}

// Sweeper periodically recomputes contacts nobody has touched for an
// interval so recency decay shows up in the stored strength.
type Sweeper struct {
	lister   StaleContactLister
	updater  StrengthUpdater
	logger   *slog.Logger
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(lister StaleContactLister, updater StrengthUpdater, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		lister:   lister,
		updater:  updater,
		logger:   logger.With("component", "activity.sweeper"),
		interval: interval,
		batch:    defaultSweepBatch,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("strength_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("strength_sweep_completed", "contacts", n)
			}
		}
	}
}

// SweepOnce recomputes up to one batch of stale contacts and returns how
// many were refreshed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.lister.ListStaleContactIDs(ctx, s.now().Add(-s.interval), s.batch)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if err := s.updater.RecomputeStrength(ctx, id); err != nil {
			s.logger.Warn("strength_sweep_contact_failed", "contact_id", id, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
