// internal/config/config.go
package config

type Config struct {
	Fleet FleetConfig `yaml:"fleet"`
}

type FleetConfig struct {
	Measurement string             `yaml:"measurement"`
	Generations []GenerationConfig `yaml:"generations"`
	Units       []UnitConfig       `yaml:"units"`

	Modbus  ModbusConfig  `yaml:"modbus"`
	Poll    PollConfig    `yaml:"poll"`
	Telnet  TelnetConfig  `yaml:"telnet"`
	Sinks   SinksConfig   `yaml:"sinks"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ---- GENERATION (register layout) ----

type GenerationConfig struct {
	Name         string        `yaml:"name"`
	Base         uint16        `yaml:"base"`          // 0 or 1
	WindowLength uint16        `yaml:"window_length"` // registers per bulk read
	LayoutSpec   *LayoutConfig `yaml:"layout"`        // nil => standard layout
}

// LayoutConfig holds offsets relative to the generation base.
// Two-element lists are [start, end] (inclusive) or [hi, lo] / [a, b].
type LayoutConfig struct {
	Data       []int `yaml:"data"`
	Timestamp  []int `yaml:"timestamp"`
	DeviceCode []int `yaml:"device_code"`
	Serial     []int `yaml:"serial"`
	Extra      []int `yaml:"extra"`
	IP         []int `yaml:"ip"`
}

// ---- UNIT ----

type UnitConfig struct {
	Number     int    `yaml:"number"`
	Address    string `yaml:"address"`
	Serial     string `yaml:"serial"`     // expected serial (optional)
	Generation string `yaml:"generation"` // empty => first generation
}

// ---- SOURCE PROTOCOLS ----

type ModbusConfig struct {
	Port      int   `yaml:"port"`
	DeviceID  uint8 `yaml:"device_id"`
	TimeoutMs int   `yaml:"timeout_ms"`
	Retries   int   `yaml:"retries"`
}

type TelnetConfig struct {
	Port      int    `yaml:"port"`
	Prompt    string `yaml:"prompt"`
	Command   string `yaml:"command"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs  int `yaml:"interval_ms"`
	Concurrency int `yaml:"concurrency"` // 0 or 1 => sequential
}

// ---- SINKS ----

type SinksConfig struct {
	Influx *InfluxConfig `yaml:"influx"`
	MQTT   *MQTTConfig   `yaml:"mqtt"`
	SQLite *SQLiteConfig `yaml:"sqlite"`
	Modbus *MirrorConfig `yaml:"modbus"`
}

type InfluxConfig struct {
	URL             string `yaml:"url"`
	Database        string `yaml:"database"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	RetentionPolicy string `yaml:"retention_policy"`
	Precision       string `yaml:"precision"`
	TimeoutMs       int    `yaml:"timeout_ms"`
}

type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MirrorConfig replicates each unit's raw layout registers into a target
// Modbus server, one fixed-size slot per unit.
type MirrorConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	DataOffset uint16 `yaml:"data_offset"`
	SlotStride uint16 `yaml:"slot_stride"`
	TimeoutMs  int    `yaml:"timeout_ms"`

	// Device status block (optional, opt-in)
	StatusUnitID   *uint8  `yaml:"status_unit_id"`
	StatusBaseSlot *uint16 `yaml:"status_base_slot"`
}

// ---- AMBIENT ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}
