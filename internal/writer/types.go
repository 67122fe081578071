// internal/writer/types.go
package writer

import (
	"context"
	"errors"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// ErrSinkWrite wraps every failure reported by WriteBatch.
var ErrSinkWrite = errors.New("sink write failed")

// Writer delivers one batch per cycle into a sink.
type Writer interface {
	WriteBatch(ctx context.Context, b telemetry.Batch) error
}

// Sink is a named writer. The name labels logs and metrics.
type Sink struct {
	Name   string
	Writer Writer
}

// StatusPlan places one status block per unit.
// Unit n owns slots (BaseSlot+n-1)*SlotsPerDevice .. +SlotsPerDevice-1.
type StatusPlan struct {
	UnitID   uint8
	BaseSlot uint16
}

// MirrorUnit is one fleet member as the mirror sees it.
type MirrorUnit struct {
	Number int
	Label  string // published in the status block name slots
}

// MirrorPlan is the fully-built mirror layout.
type MirrorPlan struct {
	UnitID     uint8
	DataOffset uint16
	SlotStride uint16
	Units      []MirrorUnit
	Status     *StatusPlan // nil => status disabled
}
