// internal/codec/layout.go
package codec

import (
	"fmt"
)

// Span is an inclusive register range relative to the window base.
type Span struct {
	Start int
	End   int
}

// Len returns the number of registers covered.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Layout is the field-offset table for one fleet generation.
//
// All positions are offsets relative to Base. Two generations that differ only
// by addressing convention share the same offsets and differ in Base alone.
type Layout struct {
	Name string
	Base uint16

	Data        Span // telemetry registers, exposed signed + unsigned
	TimestampHi int
	TimestampLo int
	DeviceCode  Span
	Serial      Span
	Extra       []int // standalone data registers, exposed signed + unsigned
	IPA         int
	IPB         int
}

// DefaultLayout returns the standard PS20 register map for the given base.
//
//	data         0..16
//	timestamp    17, 18
//	device code  19..27
//	serial       28..38
//	extra        39
//	ip           40, 41
func DefaultLayout(name string, base uint16) Layout {
	return Layout{
		Name:        name,
		Base:        base,
		Data:        Span{Start: 0, End: 16},
		TimestampHi: 17,
		TimestampLo: 18,
		DeviceCode:  Span{Start: 19, End: 27},
		Serial:      Span{Start: 28, End: 38},
		Extra:       []int{39},
		IPA:         40,
		IPB:         41,
	}
}

// Extent returns the number of registers a window must hold for every field
// of the layout to be decodable (highest offset + 1).
func (l Layout) Extent() int {
	max := l.Data.End
	for _, v := range []int{
		l.TimestampHi, l.TimestampLo,
		l.DeviceCode.End, l.Serial.End,
		l.IPA, l.IPB,
	} {
		if v > max {
			max = v
		}
	}
	for _, v := range l.Extra {
		if v > max {
			max = v
		}
	}
	return max + 1
}

// Check verifies offsets are non-negative and spans are ordered.
func (l Layout) Check() error {
	spans := map[string]Span{
		"data":        l.Data,
		"device_code": l.DeviceCode,
		"serial":      l.Serial,
	}
	for name, s := range spans {
		if s.Start < 0 || s.End < s.Start {
			return fmt.Errorf("layout %q: invalid %s span %d..%d", l.Name, name, s.Start, s.End)
		}
	}

	singles := map[string]int{
		"timestamp_hi": l.TimestampHi,
		"timestamp_lo": l.TimestampLo,
		"ip_a":         l.IPA,
		"ip_b":         l.IPB,
	}
	for name, v := range singles {
		if v < 0 {
			return fmt.Errorf("layout %q: negative %s offset %d", l.Name, name, v)
		}
	}
	for _, v := range l.Extra {
		if v < 0 {
			return fmt.Errorf("layout %q: negative extra offset %d", l.Name, v)
		}
	}
	return nil
}

// ---- DECODED OUTPUT ----

// Identity is the decoded identity of one unit. Recomputed on every read.
type Identity struct {
	Serial     string
	DeviceCode string
	IP         string
	Timestamp  uint32
}

// SerialSuffix returns the last 3 characters of the serial (or all of it if shorter).
func (id Identity) SerialSuffix() string {
	return Suffix(id.Serial)
}

// Suffix returns the last 3 characters of s.
func Suffix(s string) string {
	if len(s) <= 3 {
		return s
	}
	return s[len(s)-3:]
}

// Register is one raw data register keyed by its offset relative to base.
type Register struct {
	Offset int
	Value  uint16
}

// Signed returns the two's-complement value.
func (r Register) Signed() int16 {
	return ToSigned16(r.Value)
}

// Reading is the full decode of one window.
type Reading struct {
	Identity Identity
	Data     []Register // Data span followed by Extra registers, in layout order

	// Raw holds registers 0..Extent-1 verbatim.
	Raw []uint16
}

// Decode applies the layout to a window.
// Any field outside the window yields ErrDecodeAnomaly; a window read under the
// other addressing convention yields ErrBaseMismatch.
func (l Layout) Decode(w Window) (Reading, error) {
	if w.Base != l.Base {
		return Reading{}, fmt.Errorf(
			"%w: layout %q expects base %d, window has base %d",
			ErrBaseMismatch, l.Name, l.Base, w.Base,
		)
	}
	if w.Len() < l.Extent() {
		return Reading{}, fmt.Errorf(
			"%w: layout %q needs %d registers, window has %d",
			ErrDecodeAnomaly, l.Name, l.Extent(), w.Len(),
		)
	}

	var (
		r   Reading
		err error
	)

	if r.Identity.Serial, err = DecodePackedASCII(w, l.Serial.Start, l.Serial.End); err != nil {
		return Reading{}, fmt.Errorf("serial: %w", err)
	}
	if r.Identity.DeviceCode, err = DecodePackedASCII(w, l.DeviceCode.Start, l.DeviceCode.End); err != nil {
		return Reading{}, fmt.Errorf("device code: %w", err)
	}
	if r.Identity.IP, err = DecodeIPv4(w, l.IPA, l.IPB); err != nil {
		return Reading{}, fmt.Errorf("ip: %w", err)
	}
	if r.Identity.Timestamp, err = DecodeTimestamp(w, l.TimestampHi, l.TimestampLo); err != nil {
		return Reading{}, fmt.Errorf("timestamp: %w", err)
	}

	r.Data = make([]Register, 0, l.Data.Len()+len(l.Extra))
	for off := l.Data.Start; off <= l.Data.End; off++ {
		v, err := w.At(off)
		if err != nil {
			return Reading{}, err
		}
		r.Data = append(r.Data, Register{Offset: off, Value: v})
	}
	for _, off := range l.Extra {
		v, err := w.At(off)
		if err != nil {
			return Reading{}, err
		}
		r.Data = append(r.Data, Register{Offset: off, Value: v})
	}

	if r.Raw, err = w.Slice(0, l.Extent()-1); err != nil {
		return Reading{}, err
	}

	return r, nil
}
