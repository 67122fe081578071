// internal/watch/tracker.go
package watch

import (
	"fmt"
	"sort"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

// Change is one field whose value moved between consecutive cycles.
type Change struct {
	Unit  int
	Field string
	Old   any
	New   any
}

// Report is what changed between the previous batch and the current one.
type Report struct {
	Cycle    uint64
	Baseline bool     // first observed batch; nothing to compare against
	Changes  []Change // by unit, then field
	Appeared []int    // units with a point now but not last cycle
	Lost     []int    // units with a point last cycle but not now
}

// Tracker keeps the previous cycle's fields per unit.
// Not safe for concurrent use; the run loop is its only caller.
type Tracker struct {
	prev   map[int]map[string]any
	primed bool
}

func NewTracker() *Tracker {
	return &Tracker{prev: make(map[int]map[string]any)}
}

// Observe diffs b against the previous batch and retains b as the new baseline.
// The timestamp field changes every cycle and is ignored.
func (t *Tracker) Observe(b telemetry.Batch) Report {
	rep := Report{Cycle: b.Cycle}

	cur := make(map[int]map[string]any, len(b.Points))
	for _, p := range b.Points {
		cur[p.Unit] = p.Fields
	}

	if !t.primed {
		t.prev = cur
		t.primed = true
		rep.Baseline = true
		rep.Appeared = sortedKeys(cur)
		return rep
	}

	for _, unit := range sortedKeys(cur) {
		old, ok := t.prev[unit]
		if !ok {
			rep.Appeared = append(rep.Appeared, unit)
			continue
		}
		rep.Changes = append(rep.Changes, diff(unit, old, cur[unit])...)
	}
	for _, unit := range sortedKeys(t.prev) {
		if _, ok := cur[unit]; !ok {
			rep.Lost = append(rep.Lost, unit)
		}
	}

	t.prev = cur
	return rep
}

func diff(unit int, old, cur map[string]any) []Change {
	keys := make(map[string]struct{}, len(cur))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range cur {
		keys[k] = struct{}{}
	}
	delete(keys, telemetry.FieldTimestamp)

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var out []Change
	for _, k := range names {
		o, n := old[k], cur[k]
		if fmt.Sprint(o) == fmt.Sprint(n) {
			continue
		}
		out = append(out, Change{Unit: unit, Field: k, Old: o, New: n})
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
