// internal/poller/types.go
package poller

import (
	"fmt"
	"time"

	"github.com/tamzrod/modbus-fleet/internal/codec"
)

// Unit is one fleet member as the poller sees it.
// Layout is resolved from the unit's generation once, at build time.
type Unit struct {
	Number       int
	Address      string // host or host:port
	Serial       string // expected serial; empty disables the identity check
	Layout       codec.Layout
	WindowLength uint16
}

// ReadRequest describes one window read.
// Geometry only: no semantics.
type ReadRequest struct {
	Unit     int
	Endpoint string // host:port
	DeviceID uint8
	Base     uint16
	Length   uint16
	Timeout  time.Duration
	Retries  int
}

// FailureKind classifies a failed unit read.
type FailureKind uint8

const (
	ConnectionRefused FailureKind = iota + 1
	Timeout
	ProtocolError
	ShortRead
)

func (k FailureKind) String() string {
	switch k {
	case ConnectionRefused:
		return "connection_refused"
	case Timeout:
		return "timeout"
	case ProtocolError:
		return "protocol_error"
	case ShortRead:
		return "short_read"
	default:
		return "unknown"
	}
}

// ReadFailure is the typed error returned by Reader.Read.
type ReadFailure struct {
	Unit     int
	Endpoint string
	Kind     FailureKind
	Detail   string

	// ShortRead only.
	Expected int
	Got      int

	// Modbus exception code for ProtocolError, 0 otherwise.
	Exception uint8

	Attempts int
	Err      error
}

func (f *ReadFailure) Error() string {
	if f.Kind == ShortRead {
		return fmt.Sprintf(
			"unit %d (%s): short read: expected %d registers, got %d",
			f.Unit, f.Endpoint, f.Expected, f.Got,
		)
	}
	return fmt.Sprintf("unit %d (%s): %s: %s", f.Unit, f.Endpoint, f.Kind, f.Detail)
}

func (f *ReadFailure) Unwrap() error {
	return f.Err
}

// Code is the failure as published in a status block: kind in the high byte,
// Modbus exception code (if any) in the low byte.
func (f *ReadFailure) Code() uint16 {
	return uint16(f.Kind)<<8 | uint16(f.Exception)
}

// State is the orchestrator lifecycle.
type State int32

const (
	Idle State = iota
	Collecting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
