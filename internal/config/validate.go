// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-fleet/internal/status"
)

// maxReadQuantity is the protocol limit for one read-holding-registers request.
const maxReadQuantity = 125

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	f := cfg.Fleet

	if f.Measurement == "" {
		return errors.New("fleet.measurement must not be empty")
	}

	// ------------------------------------------------------------
	// GENERATIONS (register layout per addressing convention)
	// ------------------------------------------------------------

	if len(f.Generations) == 0 {
		return errors.New("fleet.generations: at least one generation required")
	}

	extents := make(map[string]int)

	for _, g := range f.Generations {
		if g.Name == "" {
			return errors.New("generation: name required")
		}
		if _, dup := extents[g.Name]; dup {
			return fmt.Errorf("generation %q: declared twice", g.Name)
		}
		if g.Base > 1 {
			return fmt.Errorf("generation %q: base must be 0 or 1, got %d", g.Name, g.Base)
		}
		if g.WindowLength == 0 || g.WindowLength > maxReadQuantity {
			return fmt.Errorf(
				"generation %q: window_length must be 1..%d, got %d",
				g.Name, maxReadQuantity, g.WindowLength,
			)
		}

		l, err := g.Layout()
		if err != nil {
			return err
		}
		if l.Extent() > int(g.WindowLength) {
			return fmt.Errorf(
				"generation %q: layout needs %d registers but window_length is %d",
				g.Name, l.Extent(), g.WindowLength,
			)
		}

		extents[g.Name] = l.Extent()
	}

	// ------------------------------------------------------------
	// UNITS (fixed fleet table)
	// ------------------------------------------------------------

	if len(f.Units) == 0 {
		return errors.New("fleet.units: at least one unit required")
	}

	seen := make(map[int]string)

	for _, u := range f.Units {
		if u.Number < 1 {
			return fmt.Errorf("unit %q: number must be >= 1, got %d", u.Address, u.Number)
		}
		if prev, dup := seen[u.Number]; dup {
			return fmt.Errorf("unit %d: number used by %q and %q", u.Number, prev, u.Address)
		}
		seen[u.Number] = u.Address

		if u.Address == "" {
			return fmt.Errorf("unit %d: address required", u.Number)
		}

		// serial sanity (ASCII only)
		for i := 0; i < len(u.Serial); i++ {
			if u.Serial[i] > 0x7F {
				return fmt.Errorf("unit %d: serial must contain ASCII characters only", u.Number)
			}
		}

		if _, ok := f.Generation(u.Generation); !ok {
			return fmt.Errorf("unit %d: unknown generation %q", u.Number, u.Generation)
		}
	}

	// ------------------------------------------------------------
	// TRANSPORT + CADENCE
	// ------------------------------------------------------------

	if f.Modbus.Port < 1 || f.Modbus.Port > 65535 {
		return fmt.Errorf("modbus.port out of range: %d", f.Modbus.Port)
	}
	if f.Modbus.TimeoutMs <= 0 {
		return errors.New("modbus.timeout_ms must be > 0")
	}
	if f.Modbus.Retries < 0 {
		return errors.New("modbus.retries must be >= 0")
	}
	if f.Poll.IntervalMs <= 0 {
		return errors.New("poll.interval_ms must be > 0")
	}
	if f.Poll.Concurrency < 0 {
		return errors.New("poll.concurrency must be >= 0")
	}
	if f.Telnet.Port < 1 || f.Telnet.Port > 65535 {
		return fmt.Errorf("telnet.port out of range: %d", f.Telnet.Port)
	}
	if f.Telnet.Prompt == "" {
		return errors.New("telnet.prompt must not be empty")
	}
	if f.Telnet.TimeoutMs <= 0 {
		return errors.New("telnet.timeout_ms must be > 0")
	}

	return validateSinks(f, extents)
}

func validateSinks(f FleetConfig, extents map[string]int) error {
	s := f.Sinks

	if s.Influx != nil {
		if s.Influx.URL == "" || s.Influx.Database == "" {
			return errors.New("sinks.influx: url and database required")
		}
	}
	if s.MQTT != nil {
		if s.MQTT.Broker == "" || s.MQTT.Topic == "" {
			return errors.New("sinks.mqtt: broker and topic required")
		}
		if s.MQTT.QoS > 2 {
			return fmt.Errorf("sinks.mqtt: qos must be 0..2, got %d", s.MQTT.QoS)
		}
	}
	if s.SQLite != nil && s.SQLite.Path == "" {
		return errors.New("sinks.sqlite: path required")
	}
	if s.Modbus != nil {
		return validateMirror(f, *s.Modbus, extents)
	}
	return nil
}

// validateMirror checks that no two units' mirror slots overlap
// and that status blocks do not collide with data slots.
func validateMirror(f FleetConfig, m MirrorConfig, extents map[string]int) error {
	type span struct {
		start int
		end   int
		owner string
	}

	if m.Endpoint == "" {
		return errors.New("sinks.modbus: endpoint required")
	}
	if m.SlotStride == 0 {
		return errors.New("sinks.modbus: slot_stride must be > 0")
	}
	if (m.StatusUnitID == nil) != (m.StatusBaseSlot == nil) {
		return errors.New("sinks.modbus: status_unit_id and status_base_slot must be set together")
	}

	// key = unit id ; status blocks share the data memory only if unit ids match
	spans := make(map[uint8][]span)

	add := func(uid uint8, s span) error {
		if s.end > 0xFFFF {
			return fmt.Errorf("sinks.modbus: %s range %d-%d exceeds register space", s.owner, s.start, s.end)
		}
		for _, e := range spans[uid] {
			// overlap check (inclusive)
			if !(s.end < e.start || s.start > e.end) {
				return fmt.Errorf(
					"sinks.modbus: overlap unit_id=%d range=%d-%d (%s) overlaps range=%d-%d (%s)",
					uid, s.start, s.end, s.owner, e.start, e.end, e.owner,
				)
			}
		}
		spans[uid] = append(spans[uid], s)
		return nil
	}

	for _, u := range f.Units {
		g, _ := f.Generation(u.Generation)
		start := int(m.DataOffset) + (u.Number-1)*int(m.SlotStride)
		end := start + extents[g.Name] - 1

		if err := add(m.UnitID, span{start: start, end: end, owner: fmt.Sprintf("unit %d data", u.Number)}); err != nil {
			return err
		}

		if m.StatusUnitID != nil {
			sStart := (int(*m.StatusBaseSlot) + u.Number - 1) * status.SlotsPerDevice
			sEnd := sStart + status.SlotsPerDevice - 1
			if err := add(*m.StatusUnitID, span{start: sStart, end: sEnd, owner: fmt.Sprintf("unit %d status", u.Number)}); err != nil {
				return err
			}
		}
	}

	return nil
}
