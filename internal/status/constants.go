// internal/status/constants.go
package status

// Unit Status Block layout constants.
// These values define the published block and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of register slots per fleet unit.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the unit health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the code of the most recent read failure.
const SlotLastErrorCode = 1

// SlotSecondsInError holds how long (in seconds) the unit has been failing.
const SlotSecondsInError = 2

// SlotCycleLow holds the low 16 bits of the cycle counter of the last update.
const SlotCycleLow = 3

// ---- RESERVED RANGE ----

// Slots 4-10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the unit label.
// The label is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the label.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the label (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for the label.
const DeviceNameMaxChars = 16

// MaxSecondsInError is the saturation value of SlotSecondsInError. It MUST NOT wrap.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents a unit not yet polled.
const HealthUnknown uint16 = 0

// HealthOK represents a unit whose last read and decode succeeded.
const HealthOK uint16 = 1

// HealthError represents a unit whose last read or decode failed.
const HealthError uint16 = 2
