// internal/writer/mqtt/mqtt.go
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/modbus-fleet/internal/telemetry"
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// publisher is the part of the paho client the writer needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Writer publishes each batch as one JSON message.
type Writer struct {
	cfg Config
	pub publisher
}

// New connects to the broker. Reconnects are handled by the client.
func New(cfg Config) (*Writer, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, errors.New("writer mqtt: broker and topic required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetKeepAlive(60 * time.Second)

	c := paho.NewClient(opts)

	tok := c.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("writer mqtt: connect to %s timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("writer mqtt: connect to %s: %w", cfg.Broker, err)
	}

	return &Writer{cfg: cfg, pub: c}, nil
}

func (w *Writer) Close() error {
	w.pub.Disconnect(250)
	return nil
}

// WriteBatch publishes the batch, failures included, so consumers see
// every cycle.
func (w *Writer) WriteBatch(ctx context.Context, b telemetry.Batch) error {
	payload, err := json.Marshal(message(b))
	if err != nil {
		return fmt.Errorf("writer mqtt: marshal batch %s: %w", b.ID, err)
	}

	tok := w.pub.Publish(w.cfg.Topic, w.cfg.QoS, false, payload)

	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("writer mqtt: publish batch %s: %w", b.ID, ctx.Err())
	case <-time.After(w.cfg.Timeout):
		return fmt.Errorf("writer mqtt: publish batch %s timed out", b.ID)
	}

	if err := tok.Error(); err != nil {
		return fmt.Errorf("writer mqtt: publish batch %s: %w", b.ID, err)
	}
	return nil
}

// ---- wire format ----

type batchMsg struct {
	ID          string       `json:"batch_id"`
	Cycle       uint64       `json:"cycle"`
	CollectedAt time.Time    `json:"collected_at"`
	Points      []pointMsg   `json:"points"`
	Failed      []failureMsg `json:"failed,omitempty"`
}

type pointMsg struct {
	Measurement string            `json:"measurement"`
	Unit        int               `json:"unit"`
	Time        int64             `json:"time"`
	Tags        map[string]string `json:"tags"`
	Fields      map[string]any    `json:"fields"`
}

type failureMsg struct {
	Unit    int    `json:"unit"`
	Address string `json:"address"`
	Error   string `json:"error"`
}

func message(b telemetry.Batch) batchMsg {
	m := batchMsg{
		ID:          b.ID,
		Cycle:       b.Cycle,
		CollectedAt: b.CollectedAt.UTC(),
		Points:      make([]pointMsg, 0, len(b.Points)),
	}
	for _, p := range b.Points {
		m.Points = append(m.Points, pointMsg{
			Measurement: p.Measurement,
			Unit:        p.Unit,
			Time:        p.Time.Unix(),
			Tags:        p.Tags,
			Fields:      p.Fields,
		})
	}
	for _, f := range b.Failed {
		msg := failureMsg{Unit: f.Unit, Address: f.Address}
		if f.Err != nil {
			msg.Error = f.Err.Error()
		}
		m.Failed = append(m.Failed, msg)
	}
	return m
}
