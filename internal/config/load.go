// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Built-in defaults. Applied before the document is decoded, so any key
// present in the file wins.
const (
	DefaultMeasurement  = "ps20"
	DefaultWindowLength = 125
	DefaultModbusPort   = 502
	DefaultDeviceID     = 1
	DefaultTimeoutMs    = 1000
	DefaultIntervalMs   = 5000
	DefaultTelnetPort   = 22222
	DefaultPrompt       = "root@OpenWrt:/#"
	DefaultCommand      = "cat /mnt/ems_config"
	DefaultTelnetMs     = 5000
)

// Defaults returns a configuration carrying every default value.
// Two generations are declared: gen0 (0-indexed) and gen1 (1-indexed).
func Defaults() *Config {
	return &Config{
		Fleet: FleetConfig{
			Measurement: DefaultMeasurement,
			Generations: []GenerationConfig{
				{Name: "gen0", Base: 0, WindowLength: DefaultWindowLength},
				{Name: "gen1", Base: 1, WindowLength: DefaultWindowLength},
			},
			Modbus: ModbusConfig{
				Port:      DefaultModbusPort,
				DeviceID:  DefaultDeviceID,
				TimeoutMs: DefaultTimeoutMs,
			},
			Poll: PollConfig{
				IntervalMs:  DefaultIntervalMs,
				Concurrency: 1,
			},
			Telnet: TelnetConfig{
				Port:      DefaultTelnetPort,
				Prompt:    DefaultPrompt,
				Command:   DefaultCommand,
				TimeoutMs: DefaultTelnetMs,
			},
			Log: LogConfig{
				Level:  "info",
				Format: "console",
			},
		},
	}
}

// Load reads a YAML fleet document on top of Defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML fleet document on top of Defaults.
// Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays endpoints and secrets from the environment.
// A .env file in the working directory is loaded first when present.
// Only sinks already declared in the document are touched.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}

	_ = godotenv.Load()

	f := &cfg.Fleet

	if v := env("FLEET_LOG_LEVEL"); v != "" {
		f.Log.Level = v
	}

	if f.Sinks.Influx != nil {
		setIf(&f.Sinks.Influx.URL, "FLEET_INFLUX_URL")
		setIf(&f.Sinks.Influx.Username, "FLEET_INFLUX_USERNAME")
		setIf(&f.Sinks.Influx.Password, "FLEET_INFLUX_PASSWORD")
	}

	if f.Sinks.MQTT != nil {
		setIf(&f.Sinks.MQTT.Broker, "FLEET_MQTT_BROKER")
		setIf(&f.Sinks.MQTT.Username, "FLEET_MQTT_USERNAME")
		setIf(&f.Sinks.MQTT.Password, "FLEET_MQTT_PASSWORD")
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setIf(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
