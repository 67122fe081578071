// internal/compare/compare_test.go
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(f float64) Value { return NumberValue(f) }
func str(s string) Value  { return StringValue(s) }

func columns(values ...Value) []Column {
	cols := make([]Column, len(values))
	for i, v := range values {
		cols[i] = Column{Unit: i + 1, Values: map[string]Value{}}
		if !v.IsNull() {
			cols[i].Values["k"] = v
		}
	}
	return cols
}

func classes(r Row) []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Class.String()
	}
	return out
}

func TestCompare_ModeAndClassification(t *testing.T) {
	tbl := Compare(columns(num(10), num(10), num(12), Value{}, num(10)))

	require.Len(t, tbl.Rows, 1)
	r := tbl.Rows[0]

	assert.Equal(t, "k", r.Key)
	assert.Equal(t, float64(10), r.Mode.Num)

	want := []string{"equal", "equal", "above", "missing", "equal"}
	if diff := cmp.Diff(want, classes(r)); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}
}

func TestMode_TieGoesToFirstEncountered(t *testing.T) {
	assert.Equal(t, "b", Mode([]Value{str("b"), str("a"), str("a"), str("b")}).Str)
	assert.Equal(t, float64(7), Mode([]Value{{}, num(7), num(3)}).Num)
	assert.True(t, Mode([]Value{{}, {}}).IsNull())
	assert.True(t, Mode(nil).IsNull())
}

func TestMode_NumbersCompareByValue(t *testing.T) {
	ten := FromJSON(json.Number("10.0"))
	m := Mode([]Value{num(12), ten, num(10)})
	assert.Equal(t, float64(10), m.Num)
	assert.Equal(t, "10.0", m.String(), "first-encountered literal is kept for display")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		mode Value
		want Class
	}{
		{"null", Value{}, num(1), Missing},
		{"below", num(1), num(2), Below},
		{"above", num(3), num(2), Above},
		{"equal number", num(2), num(2), Equal},
		{"equal string", str("peak"), str("peak"), Equal},
		{"divergent string", str("flat"), str("peak"), Divergent},
		{"mixed", num(1), str("1"), Divergent},
		{"string vs numeric mode", str("x"), num(1), Divergent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.v, tt.mode))
		})
	}
}

func TestCompare_KeysUnionedAndSorted(t *testing.T) {
	cols := []Column{
		{Unit: 1, Values: map[string]Value{"zeta": num(1), "alpha": str("x")}},
		{Unit: 2, Err: errors.New("timeout")},
		{Unit: 3, Values: map[string]Value{"mid": num(2)}},
	}

	tbl := Compare(cols)

	keys := make([]string, len(tbl.Rows))
	for i, r := range tbl.Rows {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys)

	for _, r := range tbl.Rows {
		require.Len(t, r.Cells, 3)
		assert.Equal(t, Missing, r.Cells[1].Class, "failed unit is missing in row %s", r.Key)
	}
	assert.Equal(t, []int(nil), tbl.Rows[1].Outliers(cols))
}

func TestCompare_Stats(t *testing.T) {
	tbl := Compare(columns(num(10), num(10), num(12), Value{}, num(10)))

	s := tbl.Rows[0].Stats
	require.NotNil(t, s)
	assert.Equal(t, 4, s.N)
	assert.InDelta(t, 10.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.StdDev, 1e-9) // unbiased: sqrt(3/3)

	assert.Nil(t, Compare(columns(num(1), str("x"))).Rows[0].Stats)

	one := Compare(columns(num(4), Value{})).Rows[0].Stats
	require.NotNil(t, one)
	assert.Equal(t, 4.0, one.Mean)
	assert.False(t, math.IsNaN(one.StdDev))
}

func TestOutliers(t *testing.T) {
	cols := columns(num(10), num(9), num(10), str("x"))
	tbl := Compare(cols)
	assert.Equal(t, []int{2, 4}, tbl.Rows[0].Outliers(cols))
}

func TestFromJSON(t *testing.T) {
	assert.True(t, FromJSON(nil).IsNull())
	assert.Equal(t, Value{Kind: Number, Num: 95, Str: "95"}, FromJSON(json.Number("95")))
	assert.Equal(t, str("peak"), FromJSON("peak"))
	assert.Equal(t, str("true"), FromJSON(true))
	assert.Equal(t, str("[1,2]"), FromJSON([]any{json.Number("1"), json.Number("2")}))
	assert.Equal(t, str(`{"a":1}`), FromJSON(map[string]any{"a": json.Number("1")}))
	assert.Equal(t, num(2.5), FromJSON(2.5))
	assert.Equal(t, num(3), FromJSON(3))
}

// ---- collect ----

type fakeFetcher struct {
	docs map[string]map[string]any
	errs map[string]error
	seen []string
}

func (f *fakeFetcher) Fetch(_ context.Context, host string) (map[string]any, error) {
	f.seen = append(f.seen, host)
	if err := f.errs[host]; err != nil {
		return nil, err
	}
	return f.docs[host], nil
}

func TestCollect_FailureDoesNotBlockOthers(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]map[string]any{
			"10.0.0.1": {"soc_max": json.Number("95")},
			"10.0.0.3": {"soc_max": json.Number("90")},
		},
		errs: map[string]error{"10.0.0.2": errors.New("prompt timeout")},
	}

	cols := Collect(context.Background(), []Target{
		{Unit: 1, Address: "10.0.0.1", Serial: "NC-70-2505-01-0096-840"},
		{Unit: 2, Address: "10.0.0.2"},
		{Unit: 3, Address: "10.0.0.3"},
	}, f, nil)

	require.Len(t, cols, 3)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, f.seen)
	assert.Equal(t, "840", cols[0].Suffix)
	assert.Nil(t, cols[1].Values)
	assert.Error(t, cols[1].Err)
	assert.Equal(t, float64(90), cols[2].Values["soc_max"].Num)
}

func TestCollect_CancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{}
	cols := Collect(ctx, []Target{{Unit: 1, Address: "a"}, {Unit: 2, Address: "b"}}, f, nil)

	assert.Empty(t, f.seen)
	require.Len(t, cols, 2)
	assert.ErrorIs(t, cols[1].Err, context.Canceled)
}

// ---- render ----

func TestRender_PlainLayout(t *testing.T) {
	cols := columns(num(10), num(10), num(12), Value{}, num(10))
	cols[0].Suffix = "840"

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Compare(cols), RenderOptions{}))

	out := buf.String()
	lines := strings.Split(out, "\n")

	assert.Equal(t, "Key      U1(840)           U2           U3           U4           U5", lines[1])
	assert.Equal(t, "k             10           10           12            -           10", lines[3])
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "Legend: Higher than mode | Lower than mode | Normal = mode")
}

func TestRender_ColorAlignment(t *testing.T) {
	cols := columns(num(10), num(12), num(8))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Compare(cols), RenderOptions{Color: true, ValueWidth: 4}))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "k     10   "+ansiGreen+"12"+ansiReset+"    "+ansiRed+"8"+ansiReset, lines[3])
}

func TestRender_StatsAndErrors(t *testing.T) {
	cols := columns(num(10), num(12))
	cols = append(cols, Column{Unit: 3, Err: errors.New("telnet: prompt not seen before timeout")})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Compare(cols), RenderOptions{Stats: true}))

	out := buf.String()
	assert.Contains(t, out, "mean")
	assert.Contains(t, out, "11.00")
	assert.Contains(t, out, "U3: telnet: prompt not seen before timeout")
}

func TestRender_NoKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Compare([]Column{{Unit: 1, Err: errors.New("x")}}), RenderOptions{}))
	assert.Contains(t, buf.String(), "Key")
}
