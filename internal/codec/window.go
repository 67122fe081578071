// internal/codec/window.go
package codec

import (
	"errors"
	"fmt"
)

// ErrDecodeAnomaly is returned when a field range falls outside the window.
// The window is never indexed out of bounds.
var ErrDecodeAnomaly = errors.New("codec: decode anomaly")

// ErrBaseMismatch is returned when a layout is applied to a window read
// under the other addressing convention.
var ErrBaseMismatch = errors.New("codec: base index mismatch")

// Window is a contiguous block of holding registers as returned by one bulk read.
//
// Base is the protocol address of Regs[0] (0 or 1 depending on fleet generation).
// Field positions are always expressed as offsets relative to Base and resolved
// through At; nothing outside this file indexes Regs directly.
type Window struct {
	Base uint16
	Regs []uint16
}

// NewWindow wraps raw registers read starting at base.
func NewWindow(base uint16, regs []uint16) Window {
	return Window{Base: base, Regs: regs}
}

// Len returns the number of registers in the window.
func (w Window) Len() int {
	return len(w.Regs)
}

// Address returns the protocol address of the register at offset.
func (w Window) Address(offset int) int {
	return int(w.Base) + offset
}

// At returns the register at offset (relative to Base).
func (w Window) At(offset int) (uint16, error) {
	if offset < 0 || offset >= len(w.Regs) {
		return 0, fmt.Errorf(
			"%w: offset %d (address %d) outside window of %d registers",
			ErrDecodeAnomaly,
			offset,
			w.Address(offset),
			len(w.Regs),
		)
	}
	return w.Regs[offset], nil
}

// Slice returns a copy of the registers in [start, end] inclusive.
func (w Window) Slice(start, end int) ([]uint16, error) {
	if end < start {
		return nil, fmt.Errorf("%w: empty range %d..%d", ErrDecodeAnomaly, start, end)
	}
	if _, err := w.At(start); err != nil {
		return nil, err
	}
	if _, err := w.At(end); err != nil {
		return nil, err
	}
	out := make([]uint16, end-start+1)
	copy(out, w.Regs[start:end+1])
	return out, nil
}
