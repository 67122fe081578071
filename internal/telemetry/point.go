// internal/telemetry/point.go
package telemetry

import (
	"time"
)

// Tag keys.
const (
	TagUnitNumber   = "unit_number"
	TagSerialNumber = "serial_number"
	TagSerialSuffix = "serial_suffix"
	TagIPAddress    = "ip_address"
)

// Field keys that are not register values.
const (
	FieldDeviceCode = "device_code"
	FieldTimestamp  = "timestamp"
)

// Point is the record emitted for one unit in one cycle.
// Immutable once built; owned by the cycle that produced it.
type Point struct {
	Measurement string
	Unit        int
	Time        time.Time

	Tags   map[string]string
	Fields map[string]any // int64 or string

	// Raw holds the defined layout extent of the window, offset 0 first.
	Raw []uint16
}

// Failure records a unit that produced no point this cycle.
type Failure struct {
	Unit    int
	Address string
	Err     error
}

// Batch is everything one cycle produced.
//
// Points are ascending by unit number and contain at most one entry per unit.
// A unit absent from Points is listed in Failed; nothing is padded.
type Batch struct {
	ID          string
	Cycle       uint64
	CollectedAt time.Time

	Points []Point
	Failed []Failure
}

// Empty reports whether the batch carries no points.
func (b Batch) Empty() bool {
	return len(b.Points) == 0
}

// Units returns the unit numbers present in the batch, in order.
func (b Batch) Units() []int {
	out := make([]int, 0, len(b.Points))
	for _, p := range b.Points {
		out = append(out, p.Unit)
	}
	return out
}
