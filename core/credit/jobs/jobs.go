// Package jobs implements the background schedulers named in spec.md §5:
// fixed-interval sweeps over open facilities, obligations, and pending
// facilities, plus stream subscribers reacting to collaborator-originated
// events (approval conclusions, custody collateral deposits). Grounded on
// the teacher's recon.Scheduler (services/otc-gateway/recon/scheduler.go),
// generalised from a once-nightly run to a fixed interval and instrumented
// with the credit metrics registry instead of a bare logger.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/HonestMajority/lana-bank/observability/metrics"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// IntervalRunner repeats Run on a fixed cadence until its context is
// cancelled, recording each run's outcome and duration to the credit
// metrics registry. Each concrete job in this package is one IntervalRunner
// configured with a specific Run closure.
type IntervalRunner struct {
	Name     string
	Interval time.Duration
	Logger   *slog.Logger
	Clock    Clock
	Run      func(ctx context.Context, now time.Time) error
}

func (r *IntervalRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *IntervalRunner) clock() Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return time.Now
}

// Start blocks, invoking Run every Interval until ctx is cancelled.
func (r *IntervalRunner) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *IntervalRunner) runOnce(ctx context.Context) {
	started := time.Now()
	err := r.Run(ctx, r.clock()())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger().Error("job run failed", "job", r.Name, "error", err)
	}
	metrics.Credit().RecordJobRun(r.Name, outcome, time.Since(started).Seconds())
}
