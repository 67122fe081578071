// internal/writer/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	cycle        INTEGER NOT NULL,
	collected_at INTEGER NOT NULL,
	points       INTEGER NOT NULL,
	failed       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	batch_id    TEXT    NOT NULL REFERENCES batches(id),
	unit        INTEGER NOT NULL,
	time        INTEGER NOT NULL,
	serial      TEXT    NOT NULL,
	ip          TEXT    NOT NULL,
	tags        TEXT    NOT NULL,
	fields      TEXT    NOT NULL,
	PRIMARY KEY (batch_id, unit)
);
CREATE TABLE IF NOT EXISTS failures (
	batch_id TEXT    NOT NULL REFERENCES batches(id),
	unit     INTEGER NOT NULL,
	address  TEXT    NOT NULL,
	error    TEXT    NOT NULL,
	PRIMARY KEY (batch_id, unit)
);
CREATE INDEX IF NOT EXISTS points_unit_time ON points (unit, time);
`

// Writer keeps a local history of every batch: one transaction per batch.
type Writer struct {
	db *sql.DB
}

// Open opens (or creates) the database and applies the schema.
func Open(path string) (*Writer, error) {
	if path == "" {
		return nil, errors.New("writer sqlite: path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("writer sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("writer sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("writer sqlite: schema: %w", err)
	}

	return &Writer{db: db}, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}

// WriteBatch records the batch with its points and failures.
// A batch without points is still recorded.
func (w *Writer) WriteBatch(ctx context.Context, b telemetry.Batch) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writer sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, cycle, collected_at, points, failed) VALUES (?, ?, ?, ?, ?)`,
		b.ID, int64(b.Cycle), b.CollectedAt.Unix(), len(b.Points), len(b.Failed),
	); err != nil {
		return fmt.Errorf("writer sqlite: batch %s: %w", b.ID, err)
	}

	for _, p := range b.Points {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("writer sqlite: unit %d tags: %w", p.Unit, err)
		}
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			return fmt.Errorf("writer sqlite: unit %d fields: %w", p.Unit, err)
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO points (batch_id, unit, time, serial, ip, tags, fields) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, p.Unit, p.Time.Unix(),
			p.Tags[telemetry.TagSerialNumber], p.Tags[telemetry.TagIPAddress],
			string(tags), string(fields),
		); err != nil {
			return fmt.Errorf("writer sqlite: unit %d: %w", p.Unit, err)
		}
	}

	for _, f := range b.Failed {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO failures (batch_id, unit, address, error) VALUES (?, ?, ?, ?)`,
			b.ID, f.Unit, f.Address, msg,
		); err != nil {
			return fmt.Errorf("writer sqlite: failure unit %d: %w", f.Unit, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("writer sqlite: commit: %w", err)
	}
	return nil
}
