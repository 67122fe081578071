// internal/writer/sqlite/sqlite_test.go
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

func open(t *testing.T) *Writer {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func batch(id string) telemetry.Batch {
	at := time.Unix(1718000005, 0)
	return telemetry.Batch{
		ID:          id,
		Cycle:       3,
		CollectedAt: at,
		Points: []telemetry.Point{{
			Measurement: "ps20",
			Unit:        1,
			Time:        at,
			Tags: map[string]string{
				telemetry.TagSerialNumber: "NC-70-2505-01-0096-840",
				telemetry.TagIPAddress:    "172.20.233.255",
			},
			Fields: map[string]any{"reg_0": int64(-2)},
		}},
		Failed: []telemetry.Failure{{Unit: 2, Address: "10.0.0.2:502", Err: errors.New("refused")}},
	}
}

func TestWriteBatch_RecordsEverything(t *testing.T) {
	w := open(t)
	ctx := context.Background()

	require.NoError(t, w.WriteBatch(ctx, batch("b-1")))

	var cycle, points, failed int
	require.NoError(t, w.db.QueryRow(
		`SELECT cycle, points, failed FROM batches WHERE id = ?`, "b-1",
	).Scan(&cycle, &points, &failed))
	assert.Equal(t, 3, cycle)
	assert.Equal(t, 1, points)
	assert.Equal(t, 1, failed)

	var serial, ip, fields string
	require.NoError(t, w.db.QueryRow(
		`SELECT serial, ip, fields FROM points WHERE batch_id = ? AND unit = 1`, "b-1",
	).Scan(&serial, &ip, &fields))
	assert.Equal(t, "NC-70-2505-01-0096-840", serial)
	assert.Equal(t, "172.20.233.255", ip)

	var f map[string]any
	require.NoError(t, json.Unmarshal([]byte(fields), &f))
	assert.Equal(t, float64(-2), f["reg_0"])

	var msg string
	require.NoError(t, w.db.QueryRow(
		`SELECT error FROM failures WHERE batch_id = ? AND unit = 2`, "b-1",
	).Scan(&msg))
	assert.Equal(t, "refused", msg)
}

func TestWriteBatch_DuplicateRollsBack(t *testing.T) {
	w := open(t)
	ctx := context.Background()

	require.NoError(t, w.WriteBatch(ctx, batch("b-1")))

	dup := batch("b-2")
	dup.Points = append(dup.Points, dup.Points[0]) // same (batch, unit) twice
	require.Error(t, w.WriteBatch(ctx, dup))

	var n int
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM batches`).Scan(&n))
	assert.Equal(t, 1, n, "failed batch must leave no rows")
}

func TestWriteBatch_EmptyBatchRecorded(t *testing.T) {
	w := open(t)

	require.NoError(t, w.WriteBatch(context.Background(), telemetry.Batch{ID: "e", Cycle: 1}))

	var n int
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM batches WHERE id = 'e'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.db")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(context.Background(), batch("b-1")))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	var n int
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM points`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_PathRequired(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
