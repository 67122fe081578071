// internal/config/normalize.go
package config

import (
	"sort"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	f := &cfg.Fleet

	// Fleet order is ascending unit number everywhere downstream.
	sort.SliceStable(f.Units, func(i, j int) bool {
		return f.Units[i].Number < f.Units[j].Number
	})

	// Resolve the implicit generation once, here.
	for ui := range f.Units {
		u := &f.Units[ui]
		if u.Generation == "" {
			u.Generation = f.Generations[0].Name
		}
	}

	if f.Poll.Concurrency == 0 {
		f.Poll.Concurrency = 1
	}

	// ------------------------------------------------------------
	// SINK DEFAULTS
	// ------------------------------------------------------------

	if s := f.Sinks.Influx; s != nil && s.Precision == "" {
		s.Precision = "s"
	}
	if s := f.Sinks.MQTT; s != nil && s.ClientID == "" {
		s.ClientID = "fleetpoll"
	}
}
