// internal/codec/decode.go
package codec

import (
	"fmt"
	"strings"
)

// Printable ASCII range kept by DecodePackedASCII.
const (
	printableMin = 32
	printableMax = 126
)

// DecodePackedASCII decodes registers [start, end] (inclusive, relative to base)
// as two characters per register, high byte first.
//
// Bytes outside the printable range [32,126] are dropped, not replaced.
// The device pads variable-length strings with NUL, so the result may be
// shorter than 2*(end-start+1).
func DecodePackedASCII(w Window, start, end int) (string, error) {
	regs, err := w.Slice(start, end)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(regs) * 2)

	for _, r := range regs {
		hi := byte(r >> 8)
		lo := byte(r)
		if hi >= printableMin && hi <= printableMax {
			sb.WriteByte(hi)
		}
		if lo >= printableMin && lo <= printableMax {
			sb.WriteByte(lo)
		}
	}

	return sb.String(), nil
}

// DecodeTimestamp joins two registers into a 32-bit epoch value: hi<<16 | lo.
// No plausibility check is made.
func DecodeTimestamp(w Window, hi, lo int) (uint32, error) {
	h, err := w.At(hi)
	if err != nil {
		return 0, err
	}
	l, err := w.At(lo)
	if err != nil {
		return 0, err
	}
	return uint32(h)<<16 | uint32(l), nil
}

// DecodeIPv4 decodes a dotted quad split over two registers.
//
// Byte order is device-specific (NOT network order):
//
//	a.hi = octet4  a.lo = octet3
//	b.hi = octet2  b.lo = octet1
//
// Output is "octet1.octet2.octet3.octet4".
func DecodeIPv4(w Window, a, b int) (string, error) {
	ra, err := w.At(a)
	if err != nil {
		return "", err
	}
	rb, err := w.At(b)
	if err != nil {
		return "", err
	}

	o4 := byte(ra >> 8)
	o3 := byte(ra)
	o2 := byte(rb >> 8)
	o1 := byte(rb)

	return fmt.Sprintf("%d.%d.%d.%d", o1, o2, o3, o4), nil
}

// ToSigned16 reinterprets a register as two's-complement.
func ToSigned16(u uint16) int16 {
	return int16(u)
}

// PackASCII is the inverse of DecodePackedASCII for printable input:
// two bytes per register, big-endian, zero padded to n registers.
// Input longer than 2*n bytes is truncated.
func PackASCII(s string, n int) []uint16 {
	out := make([]uint16, n)
	b := []byte(s)

	for i := 0; i < n*2; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
