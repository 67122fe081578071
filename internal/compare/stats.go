// internal/compare/stats.go
package compare

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarises an all-numeric row.
type Stats struct {
	N      int
	Mean   float64
	StdDev float64
}

func rowStats(values []Value) *Stats {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		switch v.Kind {
		case Null:
			continue
		case Number:
			xs = append(xs, v.Num)
		default:
			return nil
		}
	}

	switch len(xs) {
	case 0:
		return nil
	case 1:
		return &Stats{N: 1, Mean: xs[0]}
	}

	mean, std := stat.MeanStdDev(xs, nil)
	return &Stats{N: len(xs), Mean: mean, StdDev: std}
}
