package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/interviewmesh/core"
)

// DefaultWatchInterval is how often the clock watchdog polls remaining time.
const DefaultWatchInterval = 30 * time.Second

// WatchClock polls the remaining time on a fixed interval for the lifetime
// of ctx, emitting a time event on every tick. When the budget expires it
// forcibly ends the interview and returns, unless the session has already
// reached the FEEDBACK or COMPLETED phase.
//
// Cancel ctx when the session disconnects or completes; a leaked watchdog
// would otherwise keep driving a stale coordinator. End itself is
// idempotent, so even a late tick racing a request-driven finalization
// produces only one report.
func (c *Coordinator) WatchClock(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		remaining := c.ctrl.RemainingSeconds()
		if err := c.emit(core.EventTimeRemaining, core.TimeRemainingData{
			Seconds:   remaining,
			Formatted: formatClock(remaining),
		}); err != nil {
			c.logger.Warn("interview.watchdog.emit_failed", "session_id", c.session.ID, "error", err)
			return
		}

		if remaining > 0 {
			continue
		}

		switch c.ctrl.Phase() {
		case core.PhaseFeedback, core.PhaseCompleted:
		default:
			if err := c.End(ctx); err != nil {
				c.logger.Error("interview.watchdog.end_failed", "session_id", c.session.ID, "error", err)
			}
		}
		return
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
