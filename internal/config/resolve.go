// internal/config/resolve.go
package config

import (
	"fmt"
	"time"

	"github.com/tamzrod/modbus-fleet/internal/codec"
)

// Generation looks up a generation by name. Empty name selects the first one.
func (f FleetConfig) Generation(name string) (GenerationConfig, bool) {
	if len(f.Generations) == 0 {
		return GenerationConfig{}, false
	}
	if name == "" {
		return f.Generations[0], true
	}
	for _, g := range f.Generations {
		if g.Name == name {
			return g, true
		}
	}
	return GenerationConfig{}, false
}

// Layout converts the generation's offset table into a codec layout.
func (g GenerationConfig) Layout() (codec.Layout, error) {
	l := codec.DefaultLayout(g.Name, g.Base)
	if g.LayoutSpec == nil {
		return l, nil
	}

	lc := g.LayoutSpec

	pair := func(field string, v []int, dst1, dst2 *int) error {
		if v == nil {
			return nil
		}
		if len(v) != 2 {
			return fmt.Errorf("generation %q: layout.%s must have exactly 2 entries, got %d", g.Name, field, len(v))
		}
		*dst1, *dst2 = v[0], v[1]
		return nil
	}

	if err := pair("data", lc.Data, &l.Data.Start, &l.Data.End); err != nil {
		return codec.Layout{}, err
	}
	if err := pair("timestamp", lc.Timestamp, &l.TimestampHi, &l.TimestampLo); err != nil {
		return codec.Layout{}, err
	}
	if err := pair("device_code", lc.DeviceCode, &l.DeviceCode.Start, &l.DeviceCode.End); err != nil {
		return codec.Layout{}, err
	}
	if err := pair("serial", lc.Serial, &l.Serial.Start, &l.Serial.End); err != nil {
		return codec.Layout{}, err
	}
	if err := pair("ip", lc.IP, &l.IPA, &l.IPB); err != nil {
		return codec.Layout{}, err
	}
	if lc.Extra != nil {
		l.Extra = append([]int(nil), lc.Extra...)
	}

	if err := l.Check(); err != nil {
		return codec.Layout{}, err
	}
	return l, nil
}

// ---- durations ----

func (m ModbusConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

func (t TelnetConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

func ms(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Millisecond
}

func (c InfluxConfig) Timeout() time.Duration { return ms(c.TimeoutMs, 5*time.Second) }
func (c MQTTConfig) Timeout() time.Duration   { return ms(c.TimeoutMs, 5*time.Second) }
func (c MirrorConfig) Timeout() time.Duration { return ms(c.TimeoutMs, 2*time.Second) }
