// internal/telnet/client_test.go
package telnet

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prompt = "root@OpenWrt:/#"

// session emulates the unit side of one connection.
type session func(t *testing.T, c net.Conn)

func serve(t *testing.T, s session) (host string, port int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		s(t, c)
	}()

	h, p, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return h, port
}

func respond(body string) session {
	return func(t *testing.T, c net.Conn) {
		_, _ = c.Write([]byte("\r\nBusyBox v1.28\r\n" + prompt + " "))
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil {
			return
		}
		// echo, body, prompt
		_, _ = c.Write([]byte(line[:len(line)-1] + "\r\n" + body + "\r\n" + prompt + " "))
	}
}

func client(port int, timeout time.Duration) *Client {
	return New(Config{
		Port:    port,
		Prompt:  prompt,
		Command: "cat /mnt/ems_config",
		Timeout: timeout,
	})
}

func TestFetch_ParsesDocument(t *testing.T) {
	host, port := serve(t, respond(`{"soc_max": 95, "mode": "peak", "reserve": null, "ratio": 0.5}`))

	doc, err := client(port, time.Second).Fetch(context.Background(), host)
	require.NoError(t, err)

	assert.Equal(t, json.Number("95"), doc["soc_max"])
	assert.Equal(t, json.Number("0.5"), doc["ratio"])
	assert.Equal(t, "peak", doc["mode"])
	v, ok := doc["reserve"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestFetch_HostWithModbusPortUsesTelnetPort(t *testing.T) {
	host, port := serve(t, respond(`{"a": 1}`))

	doc, err := client(port, time.Second).Fetch(context.Background(), net.JoinHostPort(host, "502"))
	require.NoError(t, err)
	assert.Len(t, doc, 1)
}

func TestFetch_MalformedDocument(t *testing.T) {
	host, port := serve(t, respond(`{"a": 1,`))

	_, err := client(port, time.Second).Fetch(context.Background(), host)
	assert.ErrorIs(t, err, ErrConfigParse)
}

func TestFetch_NoPrompt(t *testing.T) {
	host, port := serve(t, func(t *testing.T, c net.Conn) {
		_, _ = c.Write([]byte("login: "))
		time.Sleep(500 * time.Millisecond)
	})

	_, err := client(port, 100*time.Millisecond).Fetch(context.Background(), host)
	assert.ErrorIs(t, err, ErrPromptTimeout)
}

func TestFetch_ClosedBeforePrompt(t *testing.T) {
	host, port := serve(t, func(t *testing.T, c net.Conn) {
		_, _ = c.Write([]byte("bye"))
	})

	_, err := client(port, time.Second).Fetch(context.Background(), host)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFetch_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, p, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(p)
	require.NoError(t, l.Close())

	_, err = client(port, time.Second).Fetch(context.Background(), "127.0.0.1")
	assert.ErrorIs(t, err, ErrConnect)
}

func TestFetch_Cancelled(t *testing.T) {
	host, port := serve(t, func(t *testing.T, c net.Conn) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client(port, 5*time.Second).Fetch(ctx, host)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantLen int
		wantErr bool
	}{
		{"echo json prompt", "cat /mnt/ems_config\r\n{\"a\":1,\"b\":\"x\"}\r\nroot@OpenWrt:/# ", 2, false},
		{"no trailing prompt", "cat\n{\"a\":1}\n", 1, false},
		{"empty", "cat\n" + prompt, 0, true},
		{"array", "cat\n[1,2]\n" + prompt, 0, true},
		{"null", "cat\nnull\n" + prompt, 0, true},
		{"trailing garbage", "cat /mnt/ems_config\n{\"a\":1} }garbage{\n" + prompt, 0, true},
		{"two objects", "cat\n{\"a\":1}\n{\"b\":2}\n" + prompt, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.resp), prompt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfigParse)
				return
			}
			require.NoError(t, err)
			assert.Len(t, doc, tt.wantLen)
		})
	}
}
