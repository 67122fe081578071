// internal/telnet/client.go
package telnet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConnect       = errors.New("telnet: connect failed")
	ErrPromptTimeout = errors.New("telnet: prompt not seen before timeout")
	ErrClosed        = errors.New("telnet: connection closed before prompt")
	ErrConfigParse   = errors.New("telnet: config document not parseable")
)

// Config is the line session definition.
type Config struct {
	Port    int
	Prompt  string
	Command string
	Timeout time.Duration // bounds the whole session
}

// Client fetches the configuration document of one unit over a line session.
// One connection per Fetch.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Fetch waits for the prompt, sends the command, reads until the prompt
// reappears and parses the text in between as a flat JSON object.
// Numbers are returned as json.Number.
func (c *Client) Fetch(ctx context.Context, host string) (map[string]any, error) {
	addr := c.endpoint(host)

	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	// Cancellation unblocks any pending read.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	prompt := []byte(c.cfg.Prompt)

	if _, err := readUntil(conn, prompt); err != nil {
		return nil, c.sessionErr(addr, "banner", err)
	}

	if _, err := io.WriteString(conn, c.cfg.Command+"\n"); err != nil {
		return nil, fmt.Errorf("%w: %s: send command: %v", ErrConnect, addr, err)
	}

	resp, err := readUntil(conn, prompt)
	if err != nil && !(errors.Is(err, io.EOF) && len(resp) > 0) {
		return nil, c.sessionErr(addr, "response", err)
	}

	doc, err := Parse(resp, c.cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", addr, err)
	}
	return doc, nil
}

// Parse strips the command echo (first line) and the trailing prompt from a
// response and decodes the remainder as a JSON object.
func Parse(resp []byte, prompt string) (map[string]any, error) {
	text := strings.ReplaceAll(string(resp), "\r", "")

	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	if j := strings.Index(text, prompt); j >= 0 {
		text = text[:j]
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrConfigParse)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrConfigParse)
	}
	return doc, nil
}

func (c *Client) sessionErr(addr, phase string, err error) error {
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		return fmt.Errorf("%w: %s (%s)", ErrPromptTimeout, addr, phase)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s (%s)", ErrClosed, addr, phase)
	default:
		return fmt.Errorf("%w: %s (%s): %v", ErrConnect, addr, phase, err)
	}
}

func (c *Client) endpoint(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.JoinHostPort(host, strconv.Itoa(c.cfg.Port))
}

// readUntil reads until delim has been seen. It returns everything read so far,
// also on error.
func readUntil(r io.Reader, delim []byte) ([]byte, error) {
	var (
		buf   []byte
		chunk = make([]byte, 4096)
	)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if bytes.Contains(buf, delim) {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}
