// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/platform/metrics"
)

// Sweeper periodically purges expired refresh-token rows.
//
// The check runs hourly but the purge itself only fires when at least the
// minimum interval has passed since the last completed sweep, so a fleet of
// restarting instances does not hammer the table. The mark store persists
// the last-sweep time across restarts.
type Sweeper struct {
	sessions SessionRepository
	marks    SweepMarkStore
	metrics  *metrics.Registry
	logger   *slog.Logger

	checkInterval time.Duration
	minInterval   time.Duration
}

// NewSweeper creates a sweeper with the platform's default cadence.
func NewSweeper(sessions SessionRepository, marks SweepMarkStore, registry *metrics.Registry, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sessions:      sessions,
		marks:         marks,
		metrics:       registry,
		logger:        logger,
		checkInterval: constants.SweepCheckInterval,
		minInterval:   constants.SweepMinInterval,
	}
}

// Run blocks until ctx is cancelled, checking on every tick whether a sweep
// is due. Intended to be launched as a goroutine from main.
func (sweeper *Sweeper) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			sweeper.logger.ErrorContext(ctx, "session_sweeper_panicked", slog.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(sweeper.checkInterval)
	defer ticker.Stop()

	// First check immediately so a long-stopped deployment catches up on
	// startup instead of an hour later.
	sweeper.checkAndSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			sweeper.logger.InfoContext(ctx, "session_sweeper_stopped")
			return
		case <-ticker.C:
			sweeper.checkAndSweep(ctx)
		}
	}
}

// checkAndSweep purges expired rows if the minimum interval has elapsed.
// Errors are logged and retried on the next tick; the mark is only advanced
// after a successful purge.
func (sweeper *Sweeper) checkAndSweep(ctx context.Context) {
	last, err := sweeper.marks.LastSweep(ctx)
	if err != nil {
		sweeper.logger.ErrorContext(ctx, "session_sweep_mark_read_failed", slog.String("error", err.Error()))
		return
	}

	now := time.Now()
	if !last.IsZero() && now.Sub(last) < sweeper.minInterval {
		return
	}

	removed, err := sweeper.sessions.DeleteExpired(ctx)
	if err != nil {
		sweeper.logger.ErrorContext(ctx, "session_sweep_failed", slog.String("error", err.Error()))
		return
	}

	if err := sweeper.marks.MarkSweep(ctx, now); err != nil {
		sweeper.logger.ErrorContext(ctx, "session_sweep_mark_write_failed", slog.String("error", err.Error()))
	}

	sweeper.metrics.ObserveSweep(removed)
	sweeper.logger.InfoContext(ctx, "session_sweep_completed", slog.Int64("removed", removed))
}
