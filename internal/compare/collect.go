// internal/compare/collect.go
package compare

import (
	"context"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-fleet/internal/codec"
)

// Fetcher retrieves one unit's configuration document.
type Fetcher interface {
	Fetch(ctx context.Context, host string) (map[string]any, error)
}

// Target is one unit to collect from.
type Target struct {
	Unit    int
	Address string
	Serial  string
}

// Collect fetches every target in order. A failed unit yields a column
// without values; it never stops the others.
func Collect(ctx context.Context, targets []Target, f Fetcher, log *zap.Logger) []Column {
	if log == nil {
		log = zap.NewNop()
	}

	cols := make([]Column, 0, len(targets))
	for _, t := range targets {
		col := Column{Unit: t.Unit, Suffix: codec.Suffix(t.Serial)}

		if ctx.Err() != nil {
			col.Err = ctx.Err()
			cols = append(cols, col)
			continue
		}

		doc, err := f.Fetch(ctx, t.Address)
		if err != nil {
			log.Warn("config fetch failed",
				zap.Int("unit", t.Unit),
				zap.String("address", t.Address),
				zap.Error(err),
			)
			col.Err = err
			cols = append(cols, col)
			continue
		}

		log.Debug("config fetched", zap.Int("unit", t.Unit), zap.Int("keys", len(doc)))
		col.Values = FromDocument(doc)
		cols = append(cols, col)
	}
	return cols
}
