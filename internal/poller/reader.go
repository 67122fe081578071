// internal/poller/reader.go
package poller

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/tamzrod/modbus-fleet/internal/codec"
)

// Client abstracts the one Modbus operation the reader needs.
type Client interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	Close() error
}

// Dialer opens one connection. ONE attempt per call.
type Dialer func(endpoint string, deviceID uint8, timeout time.Duration) (Client, error)

// UnitReader is what the orchestrator reads windows through.
type UnitReader interface {
	Read(req ReadRequest) (codec.Window, error)
}

// Reader opens a connection per transaction and always closes it,
// on success and on failure. No connection outlives one read.
type Reader struct {
	dial Dialer
}

// NewReader creates a reader over the given dialer.
func NewReader(dial Dialer) *Reader {
	return &Reader{dial: dial}
}

// Read fetches one window. The attempt is repeated up to req.Retries extra
// times; the last failure is returned as a *ReadFailure.
func (r *Reader) Read(req ReadRequest) (codec.Window, error) {
	attempts := req.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var last *ReadFailure
	for i := 1; i <= attempts; i++ {
		w, f := r.readOnce(req)
		if f == nil {
			return w, nil
		}
		f.Attempts = i
		last = f
	}
	return codec.Window{}, last
}

func (r *Reader) readOnce(req ReadRequest) (w codec.Window, f *ReadFailure) {
	// A misbehaving transport must not take the cycle down with it.
	defer func() {
		if p := recover(); p != nil {
			w = codec.Window{}
			f = &ReadFailure{
				Unit:     req.Unit,
				Endpoint: req.Endpoint,
				Kind:     ProtocolError,
				Detail:   fmt.Sprintf("transport panic: %v", p),
			}
		}
	}()

	c, err := r.dial(req.Endpoint, req.DeviceID, req.Timeout)
	if err != nil {
		return codec.Window{}, classify(req, err, true)
	}
	if c == nil {
		return codec.Window{}, &ReadFailure{
			Unit: req.Unit, Endpoint: req.Endpoint,
			Kind: ConnectionRefused, Detail: "dialer returned no client",
		}
	}
	defer func() { _ = c.Close() }()

	regs, err := c.ReadHoldingRegisters(req.Base, req.Length)

	if err != nil {
		return codec.Window{}, classify(req, err, false)
	}
	if len(regs) < int(req.Length) {
		return codec.Window{}, &ReadFailure{
			Unit: req.Unit, Endpoint: req.Endpoint,
			Kind:     ShortRead,
			Expected: int(req.Length),
			Got:      len(regs),
		}
	}

	return codec.NewWindow(req.Base, regs[:req.Length]), nil
}

// exceptionCarrier is implemented by transport errors that wrap a Modbus
// exception response.
type exceptionCarrier interface {
	Exception() uint8
}

func classify(req ReadRequest, err error, dialing bool) *ReadFailure {
	f := &ReadFailure{
		Unit:     req.Unit,
		Endpoint: req.Endpoint,
		Detail:   err.Error(),
		Err:      err,
	}

	var (
		ne net.Error
		ex exceptionCarrier
	)

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		f.Kind = Timeout
	case errors.Is(err, syscall.ECONNREFUSED):
		f.Kind = ConnectionRefused
	case errors.As(err, &ex):
		f.Kind = ProtocolError
		f.Exception = ex.Exception()
		f.Detail = fmt.Sprintf("exception code %d", f.Exception)
	case dialing:
		// unreachable host, bad address, DNS: the unit cannot be connected to
		f.Kind = ConnectionRefused
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		f.Kind = ProtocolError
		f.Detail = "connection closed mid-transaction"
	default:
		f.Kind = ProtocolError
	}

	return f
}
