// internal/compare/render.go
package compare

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiRed   = "\033[91m"
	ansiGreen = "\033[92m"
	ansiReset = "\033[0m"
)

// RenderOptions controls table output.
type RenderOptions struct {
	Color      bool
	Stats      bool // append mean / std-dev columns for numeric rows
	ValueWidth int  // 0 => 12
}

// Render writes the table with one column per unit.
// Above-mode values are green; below-mode and divergent values are red.
func Render(w io.Writer, t Table, opt RenderOptions) error {
	valW := opt.ValueWidth
	if valW <= 0 {
		valW = 12
	}

	keyW := 20
	if len(t.Rows) > 0 {
		keyW = len("Key")
		for _, r := range t.Rows {
			if len(r.Key) > keyW {
				keyW = len(r.Key)
			}
		}
	}

	cols := len(t.Columns)
	if opt.Stats {
		cols += 2
	}
	width := keyW + 3 + cols*(valW+1)

	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", width) + "\n")
	fmt.Fprintf(&sb, "%-*s", keyW, "Key")
	for _, c := range t.Columns {
		fmt.Fprintf(&sb, " %*s", valW, header(c))
	}
	if opt.Stats {
		fmt.Fprintf(&sb, " %*s %*s", valW, "mean", valW, "stddev")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", width) + "\n")

	for _, r := range t.Rows {
		fmt.Fprintf(&sb, "%-*s", keyW, r.Key)
		for _, cell := range r.Cells {
			text := cell.Value.String()
			pad := valW - len(text)
			if pad < 0 {
				pad = 0
			}
			sb.WriteString(" " + strings.Repeat(" ", pad) + paint(text, cell.Class, opt.Color))
		}
		if opt.Stats {
			if r.Stats != nil {
				fmt.Fprintf(&sb, " %*.2f %*.2f", valW, r.Stats.Mean, valW, r.Stats.StdDev)
			} else {
				fmt.Fprintf(&sb, " %*s %*s", valW, "", valW, "")
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", width) + "\n\n")
	fmt.Fprintf(&sb, "Legend: %s | %s | Normal = mode\n",
		paint("Higher than mode", Above, opt.Color),
		paint("Lower than mode", Below, opt.Color),
	)

	for _, c := range t.Columns {
		if c.Err != nil {
			fmt.Fprintf(&sb, "U%d: %v\n", c.Unit, c.Err)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func header(c Column) string {
	if c.Suffix == "" {
		return fmt.Sprintf("U%d", c.Unit)
	}
	return fmt.Sprintf("U%d(%s)", c.Unit, c.Suffix)
}

func paint(text string, class Class, color bool) string {
	if !color {
		return text
	}
	switch class {
	case Above:
		return ansiGreen + text + ansiReset
	case Below, Divergent:
		return ansiRed + text + ansiReset
	default:
		return text
	}
}
