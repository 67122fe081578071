// internal/poller/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Client implements poller.Client using Modbus TCP.
// This adapter is geometry-only: it issues requests and unpacks raw responses.
// One Client is one connection; the reader opens and closes it per transaction.
type Client struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string // host:port
	DeviceID uint8
	Timeout  time.Duration
}

// ExceptionError is a Modbus exception response from the device.
type ExceptionError struct {
	Function byte
	Code     byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Code)
}

// Exception returns the raw exception code.
func (e *ExceptionError) Exception() uint8 {
	return e.Code
}

// Dial creates a connected Modbus TCP client.
func Dial(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.DeviceID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// ReadHoldingRegisters issues FC 3 and returns the registers big-endian decoded.
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("modbus client: not connected")
	}

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		var me *modbus.ModbusError
		if errors.As(err, &me) {
			return nil, &ExceptionError{Function: me.FunctionCode, Code: me.ExceptionCode}
		}
		return nil, err
	}

	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("modbus: read-registers byte count %d not even", len(raw))
	}

	return unpackRegisters(raw), nil
}

// ---- helpers (pure geometry) ----

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
