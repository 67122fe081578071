// internal/writer/builder.go
package writer

import (
	"go.uber.org/zap"

	cfg "github.com/tamzrod/modbus-fleet/internal/config"
	"github.com/tamzrod/modbus-fleet/internal/writer/influx"
	wmodbus "github.com/tamzrod/modbus-fleet/internal/writer/modbus"
	"github.com/tamzrod/modbus-fleet/internal/writer/mqtt"
	"github.com/tamzrod/modbus-fleet/internal/writer/sqlite"
)

// BuildMirrorPlan converts the mirror config into a plan.
// Assumes config has already passed slot overlap validation.
func BuildMirrorPlan(f cfg.FleetConfig) MirrorPlan {
	m := f.Sinks.Modbus

	plan := MirrorPlan{
		UnitID:     m.UnitID,
		DataOffset: m.DataOffset,
		SlotStride: m.SlotStride,
	}

	for _, u := range f.Units {
		plan.Units = append(plan.Units, MirrorUnit{
			Number: u.Number,
			Label:  Label(u.Number, u.Serial),
		})
	}

	if m.StatusUnitID != nil && m.StatusBaseSlot != nil {
		plan.Status = &StatusPlan{
			UnitID:   *m.StatusUnitID,
			BaseSlot: *m.StatusBaseSlot,
		}
	}

	return plan
}

// Build connects every declared sink and returns them behind one Writer.
// With no sink declared the writer discards batches.
// On error, sinks already opened are closed.
func Build(f cfg.FleetConfig, log *zap.Logger) (Writer, func() error, error) {
	var (
		sinks   []Sink
		closers []func() error
	)

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	fail := func(err error) (Writer, func() error, error) {
		_ = closeAll()
		return nil, nil, err
	}

	s := f.Sinks

	if c := s.Influx; c != nil {
		w, err := influx.New(influx.Config{
			URL:             c.URL,
			Database:        c.Database,
			Username:        c.Username,
			Password:        c.Password,
			RetentionPolicy: c.RetentionPolicy,
			Precision:       c.Precision,
			Timeout:         c.Timeout(),
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, Sink{Name: "influx", Writer: w})
		closers = append(closers, w.Close)
	}

	if c := s.MQTT; c != nil {
		w, err := mqtt.New(mqtt.Config{
			Broker:   c.Broker,
			ClientID: c.ClientID,
			Username: c.Username,
			Password: c.Password,
			Topic:    c.Topic,
			QoS:      c.QoS,
			Timeout:  c.Timeout(),
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, Sink{Name: "mqtt", Writer: w})
		closers = append(closers, w.Close)
	}

	if c := s.SQLite; c != nil {
		w, err := sqlite.Open(c.Path)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, Sink{Name: "sqlite", Writer: w})
		closers = append(closers, w.Close)
	}

	if c := s.Modbus; c != nil {
		cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: c.Endpoint,
			Timeout:  c.Timeout(),
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, Sink{Name: "modbus", Writer: NewMirror(BuildMirrorPlan(f), cli)})
		closers = append(closers, cli.Close)
	}

	if len(sinks) == 0 {
		log.Warn("no sink configured, batches are discarded")
		return Nop{}, closeAll, nil
	}

	names := make([]string, 0, len(sinks))
	for _, sk := range sinks {
		names = append(names, sk.Name)
	}
	log.Info("sinks ready", zap.Strings("sinks", names))

	return Fanout(log, sinks...), closeAll, nil
}
