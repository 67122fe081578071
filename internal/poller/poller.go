// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/modbus-fleet/internal/metrics"
	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// Sink receives exactly one batch per cycle.
type Sink interface {
	WriteBatch(ctx context.Context, b telemetry.Batch) error
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Measurement string
	Interval    time.Duration
	Concurrency int // <= 1 means strictly sequential

	Port     int
	DeviceID uint8
	Timeout  time.Duration
	Retries  int

	Units []Unit
}

// Poller runs poll cycles over a fixed fleet.
type Poller struct {
	cfg    Config
	reader UnitReader
	sink   Sink
	log    *zap.Logger
	clock  Clock

	state  atomic.Int32
	cycles atomic.Uint64
}

// New creates a poller with immutable config.
// Units are polled in ascending unit number regardless of input order.
// sink may be nil, in which case batches are only returned.
func New(cfg Config, reader UnitReader, sink Sink, log *zap.Logger) (*Poller, error) {
	if cfg.Measurement == "" {
		return nil, errors.New("poller: measurement required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Units) == 0 {
		return nil, errors.New("poller: at least one unit required")
	}
	if reader == nil {
		return nil, errors.New("poller: reader required")
	}

	units := append([]Unit(nil), cfg.Units...)
	sort.SliceStable(units, func(i, j int) bool { return units[i].Number < units[j].Number })
	for i := 1; i < len(units); i++ {
		if units[i].Number == units[i-1].Number {
			return nil, fmt.Errorf("poller: unit %d declared twice", units[i].Number)
		}
	}
	cfg.Units = units

	if log == nil {
		log = zap.NewNop()
	}

	return &Poller{
		cfg:    cfg,
		reader: reader,
		sink:   sink,
		log:    log,
		clock:  realClock{},
	}, nil
}

// State reports the lifecycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Units returns the polled units in poll order.
func (p *Poller) Units() []Unit {
	return append([]Unit(nil), p.cfg.Units...)
}

// PollOnce reads every unit once and assembles a batch.
// A failing unit is recorded in Failed and never aborts the cycle.
// Points keep ascending unit order even when reads run concurrently.
func (p *Poller) PollOnce() telemetry.Batch {
	at := p.clock.Now()
	b := telemetry.Batch{
		ID:          telemetry.NewBatchID(),
		Cycle:       p.cycles.Add(1),
		CollectedAt: at,
	}

	units := p.cfg.Units
	results := make([]unitResult, len(units))

	if p.cfg.Concurrency <= 1 {
		for i := range units {
			results[i] = p.collect(units[i], at)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.cfg.Concurrency)
		for i := range units {
			i := i
			g.Go(func() error {
				results[i] = p.collect(units[i], at)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, r := range results {
		if r.err != nil {
			b.Failed = append(b.Failed, telemetry.Failure{
				Unit:    units[i].Number,
				Address: p.endpoint(units[i]),
				Err:     r.err,
			})
			continue
		}
		b.Points = append(b.Points, r.point)
	}

	return b
}

type unitResult struct {
	point telemetry.Point
	err   error
}

func (p *Poller) collect(u Unit, at time.Time) unitResult {
	label := strconv.Itoa(u.Number)
	log := p.log.With(zap.Int("unit", u.Number), zap.String("address", u.Address))

	w, err := p.reader.Read(p.request(u))
	if err != nil {
		kind := "unknown"
		var rf *ReadFailure
		if errors.As(err, &rf) {
			kind = rf.Kind.String()
		}
		metrics.UnitReadFailures.WithLabelValues(label, kind).Inc()
		log.Warn("unit read failed", zap.String("kind", kind), zap.Error(err))
		return unitResult{err: err}
	}

	r, err := u.Layout.Decode(w)
	if err != nil {
		metrics.DecodeAnomalies.WithLabelValues(label).Inc()
		log.Warn("unit window not decodable", zap.String("layout", u.Layout.Name), zap.Error(err))
		return unitResult{err: fmt.Errorf("unit %d: decode: %w", u.Number, err)}
	}

	if u.Serial != "" && r.Identity.Serial != u.Serial {
		metrics.IdentityMismatches.WithLabelValues(label).Inc()
		log.Warn("unit identity mismatch",
			zap.String("expected_serial", u.Serial),
			zap.String("decoded_serial", r.Identity.Serial),
		)
	}

	return unitResult{point: telemetry.Encode(p.cfg.Measurement, u.Number, r, at)}
}

func (p *Poller) request(u Unit) ReadRequest {
	return ReadRequest{
		Unit:     u.Number,
		Endpoint: p.endpoint(u),
		DeviceID: p.cfg.DeviceID,
		Base:     u.Layout.Base,
		Length:   u.WindowLength,
		Timeout:  p.cfg.Timeout,
		Retries:  p.cfg.Retries,
	}
}

func (p *Poller) endpoint(u Unit) string {
	return hostPort(u.Address, p.cfg.Port)
}

// hostPort appends port unless addr already carries one.
func hostPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(port))
}
