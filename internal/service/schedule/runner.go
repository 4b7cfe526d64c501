// internal/service/schedule/runner.go
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

type Reminder interface {
	SendExpiryReminders(ctx context.Context) (int, error)
}

// Runner drives the periodic maintenance work: expiry sweeps and reminder
// mail. One run fires immediately on Start, then on every tick until the
// context is canceled.
type Runner struct {
	sweeper  Sweeper
	reminder Reminder
	interval time.Duration
	logger   *zap.Logger
}

func NewRunner(sweeper Sweeper, reminder Reminder, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{sweeper: sweeper, reminder: reminder, interval: interval, logger: logger}
}

// Start blocks until ctx is canceled. Call it from its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("schedule runner stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if swept, err := r.sweeper.SweepExpired(ctx); err != nil {
		r.logger.Error("expiry sweep failed", zap.Error(err))
	} else if swept > 0 {
		r.logger.Info("expiry sweep completed", zap.Int("swept", swept))
	}

	if r.reminder == nil {
		return
	}
	if sent, err := r.reminder.SendExpiryReminders(ctx); err != nil {
		r.logger.Error("expiry reminders failed", zap.Error(err))
	} else if sent > 0 {
		r.logger.Info("expiry reminders completed", zap.Int("sent", sent))
	}
}
