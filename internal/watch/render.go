// internal/watch/render.go
package watch

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// RenderReport writes the changes of one cycle, one line per field.
func RenderReport(w io.Writer, rep Report) error {
	var sb strings.Builder

	switch {
	case rep.Baseline:
		fmt.Fprintf(&sb, "cycle %d: baseline for units %s\n", rep.Cycle, joinInts(rep.Appeared))
	case len(rep.Changes) == 0 && len(rep.Appeared) == 0 && len(rep.Lost) == 0:
		fmt.Fprintf(&sb, "cycle %d: no changes\n", rep.Cycle)
	default:
		fmt.Fprintf(&sb, "cycle %d:\n", rep.Cycle)
		for _, c := range rep.Changes {
			fmt.Fprintf(&sb, "  U%d %s: %v -> %v\n", c.Unit, c.Field, c.Old, c.New)
		}
		if len(rep.Appeared) > 0 {
			fmt.Fprintf(&sb, "  back: %s\n", joinInts(rep.Appeared))
		}
		if len(rep.Lost) > 0 {
			fmt.Fprintf(&sb, "  lost: %s\n", joinInts(rep.Lost))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Expected is the configured serial per unit number.
type Expected map[int]string

// RenderSummary writes one line per configured unit: the decoded identity,
// and whether the decoded serial matches the configured one.
// Units without an expected serial show "-" in the match column.
func RenderSummary(w io.Writer, b telemetry.Batch, expected Expected) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tSUFFIX\tSERIAL\tIP\tDEVICE\tMATCH")

	type line struct {
		unit int
		text string
	}
	lines := make([]line, 0, len(b.Points)+len(b.Failed))

	for _, p := range b.Points {
		serial := p.Tags[telemetry.TagSerialNumber]
		match := "-"
		if want, ok := expected[p.Unit]; ok && want != "" {
			match = "ok"
			if want != serial {
				match = "MISMATCH (want " + want + ")"
			}
		}
		lines = append(lines, line{p.Unit, fmt.Sprintf("%d\t%s\t%s\t%s\t%v\t%s",
			p.Unit,
			p.Tags[telemetry.TagSerialSuffix],
			serial,
			p.Tags[telemetry.TagIPAddress],
			p.Fields[telemetry.FieldDeviceCode],
			match,
		)})
	}
	for _, f := range b.Failed {
		lines = append(lines, line{f.Unit, fmt.Sprintf("%d\tERROR\t%v\t\t\t", f.Unit, f.Err)})
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].unit < lines[j].unit })
	for _, l := range lines {
		fmt.Fprintln(tw, l.text)
	}
	return tw.Flush()
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "none"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
