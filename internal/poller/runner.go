// internal/poller/runner.go
package poller

import (
	"context"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-fleet/internal/metrics"
	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// Cycle collects one batch and flushes it to the sink exactly once.
// A sink failure is logged and returned; the batch is not retried.
func (p *Poller) Cycle(ctx context.Context) (telemetry.Batch, error) {
	p.state.Store(int32(Collecting))
	defer p.state.Store(int32(Idle))

	start := p.clock.Now()
	b := p.PollOnce()

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(p.clock.Now().Sub(start).Seconds())
	metrics.BatchPoints.Set(float64(len(b.Points)))

	p.log.Info("cycle collected",
		zap.Uint64("cycle", b.Cycle),
		zap.String("batch", b.ID),
		zap.Ints("units", b.Units()),
		zap.Int("failed", len(b.Failed)),
	)

	if p.sink == nil {
		return b, nil
	}

	if err := p.sink.WriteBatch(ctx, b); err != nil {
		p.log.Error("batch write failed",
			zap.Uint64("cycle", b.Cycle),
			zap.String("batch", b.ID),
			zap.Error(err),
		)
		return b, err
	}

	return b, nil
}

// Run executes cycles until ctx is cancelled.
// Cancellation is observed between cycles only: a running cycle always
// completes its reads and its flush. Sleep is interval minus the time the
// cycle took; an overrun starts the next cycle at once.
func (p *Poller) Run(ctx context.Context) {
	defer p.state.Store(int32(Stopped))

	p.log.Info("poll loop started",
		zap.Int("units", len(p.cfg.Units)),
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	for {
		if ctx.Err() != nil {
			p.log.Info("poll loop stopped")
			return
		}

		start := p.clock.Now()
		_, _ = p.Cycle(context.WithoutCancel(ctx))
		elapsed := p.clock.Now().Sub(start)

		if ctx.Err() != nil {
			p.log.Info("poll loop stopped")
			return
		}

		wait := nextDelay(p.cfg.Interval, elapsed)
		if wait == 0 {
			metrics.CycleOverruns.Inc()
			p.log.Warn("cycle overran interval",
				zap.Duration("elapsed", elapsed),
				zap.Duration("interval", p.cfg.Interval),
			)
			continue
		}

		select {
		case <-ctx.Done():
			p.log.Info("poll loop stopped")
			return
		case <-p.clock.After(wait):
		}
	}
}
