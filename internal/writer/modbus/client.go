// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// maxWriteQuantity is the protocol limit for one write-multiple-registers request.
const maxWriteQuantity = 123

// EndpointClient is a single TCP connection to one mirror endpoint.
// It serializes requests because it mutates SlaveId per write.
// A dropped connection is re-opened by the transport on the next request.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes regs starting at addr, split into protocol-sized requests.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	for off := 0; off < len(regs); off += maxWriteQuantity {
		end := off + maxWriteQuantity
		if end > len(regs) {
			end = len(regs)
		}
		chunk := regs[off:end]
		at := addr + uint16(off)

		if _, err := c.client.WriteMultipleRegisters(at, uint16(len(chunk)), packRegisters(chunk)); err != nil {
			return fmt.Errorf("write %d registers at %d: %w", len(chunk), at, err)
		}
	}
	return nil
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
