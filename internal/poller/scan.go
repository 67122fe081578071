// internal/poller/scan.go
package poller

import (
	"fmt"
	"io"
	"text/tabwriter"
	"unicode"
)

// ScanEntry is one non-zero register found by Scan.
type ScanEntry struct {
	Offset  int
	Address int
	Value   uint16
	Signed  int16
	Text    string // printable bytes of the register, high byte first
}

// Scan reads one window and lists its non-zero registers in address order.
// Used to map an unknown unit's register layout.
func Scan(r UnitReader, req ReadRequest) ([]ScanEntry, error) {
	w, err := r.Read(req)
	if err != nil {
		return nil, err
	}

	var out []ScanEntry
	for off := 0; off < w.Len(); off++ {
		v, err := w.At(off)
		if err != nil {
			return nil, err
		}
		if v == 0 {
			continue
		}
		out = append(out, ScanEntry{
			Offset:  off,
			Address: w.Address(off),
			Value:   v,
			Signed:  int16(v),
			Text:    printable(v),
		})
	}
	return out, nil
}

// RenderScan writes scan entries as an aligned table.
func RenderScan(w io.Writer, endpoint string, entries []ScanEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s: %d non-zero registers\n", endpoint, len(entries))
	fmt.Fprintln(tw, "OFFSET\tADDR\tUNSIGNED\tSIGNED\tHEX\tTEXT\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t0x%04X\t%s\t\n", e.Offset, e.Address, e.Value, e.Signed, e.Value, e.Text)
	}
	return tw.Flush()
}

func printable(v uint16) string {
	var b []byte
	for _, c := range []byte{byte(v >> 8), byte(v)} {
		if c < 128 && unicode.IsPrint(rune(c)) {
			b = append(b, c)
		}
	}
	return string(b)
}
