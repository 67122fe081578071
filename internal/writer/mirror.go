// internal/writer/mirror.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/modbus-fleet/internal/codec"
	"github.com/tamzrod/modbus-fleet/internal/status"
	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// endpointClient is the exact contract the mirror uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// mirrorWriter replicates each point's raw layout registers into a fixed
// slot of a target Modbus server, and optionally publishes per-unit status.
type mirrorWriter struct {
	plan MirrorPlan
	cli  endpointClient

	status    map[int]*deviceStatusWriter
	failingAt map[int]time.Time // first failure of the current error streak
}

// NewMirror builds the mirror writer over one endpoint client.
func NewMirror(plan MirrorPlan, cli endpointClient) Writer {
	w := &mirrorWriter{
		plan:      plan,
		cli:       cli,
		failingAt: make(map[int]time.Time),
	}

	if plan.Status != nil {
		w.status = make(map[int]*deviceStatusWriter, len(plan.Units))
		for _, u := range plan.Units {
			w.status[u.Number] = newDeviceStatusWriter(*plan.Status, u, cli)
		}
	}

	return w
}

// WriteBatch is not safe for concurrent use; the poll loop flushes one batch at a time.
func (w *mirrorWriter) WriteBatch(_ context.Context, b telemetry.Batch) error {
	var errs []string

	// ------------------------------------------------------------
	// DATA WRITES
	// ------------------------------------------------------------

	for _, p := range b.Points {
		addr := w.slotAddr(p.Unit)
		if err := w.cli.WriteRegisters(w.plan.UnitID, addr, p.Raw); err != nil {
			errs = append(errs, fmt.Sprintf(
				"mirror: unit=%d target_unit=%d addr=%d err=%v",
				p.Unit, w.plan.UnitID, addr, err,
			))
		}
	}

	// ------------------------------------------------------------
	// STATUS WRITES (data, different address)
	// ------------------------------------------------------------

	if w.status != nil {
		cycle := uint16(b.Cycle)

		for _, p := range b.Points {
			delete(w.failingAt, p.Unit)
			if err := w.writeStatus(p.Unit, status.Snapshot{
				Health: status.HealthOK,
				Cycle:  cycle,
			}); err != nil {
				errs = append(errs, err.Error())
			}
		}

		for _, f := range b.Failed {
			since, ok := w.failingAt[f.Unit]
			if !ok {
				since = b.CollectedAt
				w.failingAt[f.Unit] = since
			}
			if err := w.writeStatus(f.Unit, status.Snapshot{
				Health:         status.HealthError,
				LastErrorCode:  errorCode(f.Err),
				SecondsInError: secondsSince(since, b.CollectedAt),
				Cycle:          cycle,
			}); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

func (w *mirrorWriter) writeStatus(unit int, s status.Snapshot) error {
	sw := w.status[unit]
	if sw == nil {
		return fmt.Errorf("mirror: unit %d has no status block", unit)
	}
	return sw.WriteStatus(s)
}

func (w *mirrorWriter) slotAddr(unit int) uint16 {
	return w.plan.DataOffset + uint16(unit-1)*w.plan.SlotStride
}

// secondsSince saturates at MaxSecondsInError.
func secondsSince(since, now time.Time) uint16 {
	d := now.Sub(since)
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if secs > status.MaxSecondsInError {
		return status.MaxSecondsInError
	}
	return uint16(secs)
}

// Label is the status block name of a unit: U<n>, plus the serial suffix when known.
func Label(number int, serial string) string {
	if serial == "" {
		return fmt.Sprintf("U%d", number)
	}
	return fmt.Sprintf("U%d-%s", number, codec.Suffix(serial))
}
