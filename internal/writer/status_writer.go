// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-fleet/internal/codec"
	"github.com/tamzrod/modbus-fleet/internal/status"
)

// StatusWriter is the delivery-only contract for unit status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter owns the status block of one unit.
type deviceStatusWriter struct {
	plan StatusPlan
	unit MirrorUnit
	cli  endpointClient

	needFull bool
	last     status.Snapshot
}

func newDeviceStatusWriter(plan StatusPlan, u MirrorUnit, cli endpointClient) *deviceStatusWriter {
	return &deviceStatusWriter{
		plan:     plan,
		unit:     u,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: unit %d has no client", sw.unit.Number)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(unitID, baseAddr, status.Encode(s, sw.unit.Label)); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: unit %d full block write failed: %w", sw.unit.Number, err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	slots := []struct {
		name string
		slot uint16
		prev *uint16
		next uint16
	}{
		{"health", status.SlotHealthCode, &sw.last.Health, s.Health},
		{"last_error", status.SlotLastErrorCode, &sw.last.LastErrorCode, s.LastErrorCode},
		{"seconds_in_error", status.SlotSecondsInError, &sw.last.SecondsInError, s.SecondsInError},
		{"cycle", status.SlotCycleLow, &sw.last.Cycle, s.Cycle},
	}

	for _, sl := range slots {
		if *sl.prev == sl.next {
			continue
		}
		if err := sw.cli.WriteRegisters(unitID, baseAddr+sl.slot, []uint16{sl.next}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.prev = sl.next
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next success.
		sw.needFull = true
		return fmt.Errorf("status writer: unit %d: %s", sw.unit.Number, strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each unit owns a fixed SlotsPerDevice block.
	return (sw.plan.BaseSlot + uint16(sw.unit.Number-1)) * status.SlotsPerDevice
}

// Status codes for failures that carry no code of their own.
const (
	codeUnknown      uint16 = 0x00FF
	codeDecode       uint16 = 0x0500
	codeBaseMismatch uint16 = 0x0600
)

// errorCode maps a unit failure to the value published in SlotLastErrorCode.
func errorCode(err error) uint16 {
	var coded interface{ Code() uint16 }
	switch {
	case err == nil:
		return 0
	case errors.As(err, &coded):
		return coded.Code()
	case errors.Is(err, codec.ErrBaseMismatch):
		return codeBaseMismatch
	case errors.Is(err, codec.ErrDecodeAnomaly):
		return codeDecode
	default:
		return codeUnknown
	}
}

var _ StatusWriter = (*deviceStatusWriter)(nil)
