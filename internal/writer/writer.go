// internal/writer/writer.go
package writer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-fleet/internal/metrics"
	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

type fanout struct {
	sinks []Sink
	log   *zap.Logger
}

// Fanout delivers each batch to every sink in order.
// One failing sink does not keep the batch from the others.
func Fanout(log *zap.Logger, sinks ...Sink) Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &fanout{sinks: sinks, log: log}
}

func (f *fanout) WriteBatch(ctx context.Context, b telemetry.Batch) error {
	var errs []string

	for _, s := range f.sinks {
		if err := s.Writer.WriteBatch(ctx, b); err != nil {
			metrics.SinkWriteFailures.WithLabelValues(s.Name).Inc()
			f.log.Warn("sink rejected batch",
				zap.String("sink", s.Name),
				zap.String("batch", b.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		f.log.Debug("batch delivered",
			zap.String("sink", s.Name),
			zap.String("batch", b.ID),
			zap.Int("points", len(b.Points)),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrSinkWrite, strings.Join(errs, " | "))
	}
	return nil
}

// Nop accepts every batch and discards it.
type Nop struct{}

func (Nop) WriteBatch(context.Context, telemetry.Batch) error { return nil }
