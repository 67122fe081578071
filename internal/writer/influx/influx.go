// internal/writer/influx/influx.go
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

type Config struct {
	URL             string
	Database        string
	Username        string
	Password        string
	RetentionPolicy string
	Precision       string
	Timeout         time.Duration
}

// Writer posts each batch as one line-protocol write.
type Writer struct {
	cfg Config
	c   client.Client
}

func New(cfg Config) (*Writer, error) {
	if cfg.URL == "" || cfg.Database == "" {
		return nil, errors.New("writer influx: url and database required")
	}
	if cfg.Precision == "" {
		cfg.Precision = "s"
	}

	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("writer influx: %w", err)
	}

	return &Writer{cfg: cfg, c: c}, nil
}

func (w *Writer) Close() error {
	return w.c.Close()
}

// WriteBatch writes every point of the batch in one request.
// A batch without points is not sent.
func (w *Writer) WriteBatch(_ context.Context, b telemetry.Batch) error {
	if len(b.Points) == 0 {
		return nil
	}

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:        w.cfg.Database,
		RetentionPolicy: w.cfg.RetentionPolicy,
		Precision:       w.cfg.Precision,
	})
	if err != nil {
		return fmt.Errorf("writer influx: %w", err)
	}

	for _, p := range b.Points {
		pt, err := client.NewPoint(p.Measurement, tags(p.Tags), p.Fields, p.Time)
		if err != nil {
			return fmt.Errorf("writer influx: unit %d: %w", p.Unit, err)
		}
		bp.AddPoint(pt)
	}

	if err := w.c.Write(bp); err != nil {
		return fmt.Errorf("writer influx: write %d points: %w", len(b.Points), err)
	}
	return nil
}

// tags drops empty values; line protocol cannot carry them.
func tags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
