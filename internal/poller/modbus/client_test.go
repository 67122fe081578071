// internal/poller/modbus/client_test.go
package modbus

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbrandon/mbserver"
)

// startServer runs an in-process Modbus TCP server on a free loopback port.
func startServer(t *testing.T) (*mbserver.Server, string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	serv := mbserver.NewServer()
	require.NoError(t, serv.ListenTCP(addr))
	t.Cleanup(serv.Close)

	return serv, addr
}

func TestClient_ReadHoldingRegisters(t *testing.T) {
	serv, addr := startServer(t)
	serv.HoldingRegisters[0] = 0x4142
	serv.HoldingRegisters[1] = 0xFFFF
	serv.HoldingRegisters[41] = 0x14AC

	c, err := Dial(Config{Endpoint: addr, DeviceID: 1, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	regs, err := c.ReadHoldingRegisters(0, 125)
	require.NoError(t, err)
	require.Len(t, regs, 125)
	assert.Equal(t, uint16(0x4142), regs[0])
	assert.Equal(t, uint16(0xFFFF), regs[1])
	assert.Equal(t, uint16(0x14AC), regs[41])
}

func TestClient_ExceptionIsTyped(t *testing.T) {
	_, addr := startServer(t)

	c, err := Dial(Config{Endpoint: addr, DeviceID: 1, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	// Past the end of the register space: illegal data address.
	_, err = c.ReadHoldingRegisters(65500, 100)
	require.Error(t, err)

	var ex *ExceptionError
	require.True(t, errors.As(err, &ex), "want *ExceptionError, got %T: %v", err, err)
	assert.Equal(t, uint8(2), ex.Exception())
}

func TestDial_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = Dial(Config{Endpoint: addr, DeviceID: 1, Timeout: 500 * time.Millisecond})
	assert.Error(t, err)
}

func TestDial_EndpointRequired(t *testing.T) {
	_, err := Dial(Config{})
	assert.Error(t, err)
}

func TestUnpackRegisters(t *testing.T) {
	assert.Equal(t, []uint16{0x0102, 0xA0B0}, unpackRegisters([]byte{0x01, 0x02, 0xA0, 0xB0}))
	assert.Empty(t, unpackRegisters(nil))
}
