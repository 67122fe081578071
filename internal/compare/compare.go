// internal/compare/compare.go
package compare

import (
	"sort"
)

// Class is a unit's value relative to the row consensus.
type Class uint8

const (
	Equal Class = iota
	Above
	Below
	Divergent
	Missing
)

func (c Class) String() string {
	switch c {
	case Equal:
		return "equal"
	case Above:
		return "above"
	case Below:
		return "below"
	case Divergent:
		return "divergent"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Column is one unit's snapshot. Values is nil when the fetch failed;
// the unit is still listed and every cell of it is missing.
type Column struct {
	Unit   int
	Suffix string
	Values map[string]Value
	Err    error
}

// Cell is one unit's value of one key.
type Cell struct {
	Value Value
	Class Class
}

// Row is one key across the fleet.
type Row struct {
	Key   string
	Mode  Value // Null when no unit has the key
	Cells []Cell
	Stats *Stats // nil unless every present value is numeric
}

// Table is rows = keys (sorted), columns = units (input order).
type Table struct {
	Columns []Column
	Rows    []Row
}

// Compare builds the comparison table. Pure.
func Compare(cols []Column) Table {
	t := Table{Columns: cols}

	keySet := make(map[string]struct{})
	for _, c := range cols {
		for k := range c.Values {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		values := make([]Value, len(cols))
		for i, c := range cols {
			values[i] = c.Values[k] // zero Value is Null
		}

		mode := Mode(values)
		row := Row{Key: k, Mode: mode, Cells: make([]Cell, len(cols))}
		for i, v := range values {
			row.Cells[i] = Cell{Value: v, Class: Classify(v, mode)}
		}
		row.Stats = rowStats(values)

		t.Rows = append(t.Rows, row)
	}

	return t
}

// Mode returns the most frequent non-null value. Ties go to the value
// encountered first. All-null input yields Null.
func Mode(values []Value) Value {
	type tally struct {
		v     Value
		n     int
		first int
	}

	counts := make(map[string]*tally)
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		id := v.identity()
		if c, ok := counts[id]; ok {
			c.n++
			continue
		}
		counts[id] = &tally{v: v, n: 1, first: i}
	}

	var best *tally
	for _, c := range counts {
		if best == nil || c.n > best.n || (c.n == best.n && c.first < best.first) {
			best = c
		}
	}
	if best == nil {
		return Value{}
	}
	return best.v
}

// Classify places v relative to mode.
func Classify(v, mode Value) Class {
	switch {
	case v.IsNull():
		return Missing
	case v.Kind == Number && mode.Kind == Number:
		switch {
		case v.Num > mode.Num:
			return Above
		case v.Num < mode.Num:
			return Below
		default:
			return Equal
		}
	case v.identity() == mode.identity():
		return Equal
	default:
		return Divergent
	}
}

// Outliers lists the columns whose value differs from the row mode.
func (r Row) Outliers(cols []Column) []int {
	var out []int
	for i, c := range r.Cells {
		if c.Class == Above || c.Class == Below || c.Class == Divergent {
			out = append(out, cols[i].Unit)
		}
	}
	return out
}
