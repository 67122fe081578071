// internal/telemetry/encode.go
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/modbus-fleet/internal/codec"
)

// Encode converts one decoded reading into a Point.
// No IO. No side effects.
func Encode(measurement string, unit int, r codec.Reading, at time.Time) Point {
	id := r.Identity

	tags := map[string]string{
		TagUnitNumber:   strconv.Itoa(unit),
		TagSerialNumber: id.Serial,
		TagSerialSuffix: id.SerialSuffix(),
		TagIPAddress:    id.IP,
	}

	fields := make(map[string]any, 2*len(r.Data)+2)
	fields[FieldDeviceCode] = id.DeviceCode
	fields[FieldTimestamp] = int64(id.Timestamp)

	for _, reg := range r.Data {
		fields[SignedKey(reg.Offset)] = int64(reg.Signed())
		fields[UnsignedKey(reg.Offset)] = int64(reg.Value)
	}

	raw := make([]uint16, len(r.Raw))
	copy(raw, r.Raw)

	return Point{
		Measurement: measurement,
		Unit:        unit,
		Time:        at,
		Tags:        tags,
		Fields:      fields,
		Raw:         raw,
	}
}

// SignedKey is the field key of the two's-complement value of a register.
func SignedKey(offset int) string {
	return fmt.Sprintf("reg_%d", offset)
}

// UnsignedKey is the field key of the raw unsigned value of a register.
func UnsignedKey(offset int) string {
	return fmt.Sprintf("reg_%d_unsigned", offset)
}

// NewBatchID returns a fresh identifier for a cycle's batch.
func NewBatchID() string {
	return uuid.NewString()
}
