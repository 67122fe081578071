// internal/poller/builder.go
package poller

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/modbus-fleet/internal/config"
	pmodbus "github.com/tamzrod/modbus-fleet/internal/poller/modbus"
)

// ModbusDialer opens a Modbus TCP connection. ONE attempt per call.
func ModbusDialer(endpoint string, deviceID uint8, timeout time.Duration) (Client, error) {
	c, err := pmodbus.Dial(pmodbus.Config{
		Endpoint: endpoint,
		DeviceID: deviceID,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Units resolves the configured fleet into poll units.
// Must be called on a validated config.
func Units(f cfg.FleetConfig) ([]Unit, error) {
	units := make([]Unit, 0, len(f.Units))
	for _, u := range f.Units {
		g, ok := f.Generation(u.Generation)
		if !ok {
			return nil, fmt.Errorf("unit %d: unknown generation %q", u.Number, u.Generation)
		}
		l, err := g.Layout()
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", u.Number, err)
		}
		units = append(units, Unit{
			Number:       u.Number,
			Address:      u.Address,
			Serial:       u.Serial,
			Layout:       l,
			WindowLength: g.WindowLength,
		})
	}
	return units, nil
}

// Select keeps only the listed unit numbers. An empty list keeps all.
func Select(units []Unit, numbers []int) ([]Unit, error) {
	if len(numbers) == 0 {
		return units, nil
	}

	byNumber := make(map[int]Unit, len(units))
	for _, u := range units {
		byNumber[u.Number] = u
	}

	out := make([]Unit, 0, len(numbers))
	for _, n := range numbers {
		u, ok := byNumber[n]
		if !ok {
			return nil, fmt.Errorf("unit %d not in fleet", n)
		}
		out = append(out, u)
	}
	return out, nil
}

// Build constructs a Poller over Modbus TCP for the given units.
func Build(f cfg.FleetConfig, units []Unit, sink Sink, log *zap.Logger) (*Poller, error) {
	return New(
		Config{
			Measurement: f.Measurement,
			Interval:    f.Poll.Interval(),
			Concurrency: f.Poll.Concurrency,
			Port:        f.Modbus.Port,
			DeviceID:    f.Modbus.DeviceID,
			Timeout:     f.Modbus.Timeout(),
			Retries:     f.Modbus.Retries,
			Units:       units,
		},
		NewReader(ModbusDialer),
		sink,
		log,
	)
}

// ScanRequest builds a single-read request for an address outside the
// fleet table, using the named generation's window (first when empty).
func ScanRequest(f cfg.FleetConfig, addr, generation string) (ReadRequest, error) {
	if addr == "" {
		return ReadRequest{}, fmt.Errorf("scan: address required")
	}
	g, ok := f.Generation(generation)
	if !ok {
		return ReadRequest{}, fmt.Errorf("scan: unknown generation %q", generation)
	}
	return ReadRequest{
		Endpoint: hostPort(addr, f.Modbus.Port),
		DeviceID: f.Modbus.DeviceID,
		Base:     g.Base,
		Length:   g.WindowLength,
		Timeout:  f.Modbus.Timeout(),
		Retries:  f.Modbus.Retries,
	}, nil
}
