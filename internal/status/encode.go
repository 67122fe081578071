// internal/status/encode.go
package status

import "github.com/tamzrod/modbus-fleet/internal/codec"

// Encode converts a Snapshot and unit label into a full status block.
// Layout is locked.
// No IO. No side effects.
func Encode(s Snapshot, name string) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotCycleLow] = s.Cycle

	// Slots SlotReservedStart..SlotReservedEnd are left as zero.

	copy(regs[SlotDeviceNameStart:SlotDeviceNameEnd+1], EncodeName(name))

	return regs
}

// EncodeName packs up to DeviceNameMaxChars printable ASCII characters into
// SlotDeviceNameSlots registers. Non-printable bytes become '?'.
func EncodeName(name string) []uint16 {
	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	return codec.PackASCII(string(b), SlotDeviceNameSlots)
}
