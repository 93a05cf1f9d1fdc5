package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// NATSConfig describes a NATS connection
type NATSConfig struct {
	URL   string
	Token string
	Name  string
}

// NATSBus publishes table events as JSON on NATS subjects
type NATSBus struct {
	conn   *nats.Conn
	logger *log.Logger
}

// ConnectNATS dials NATS and returns a bus on the connection
func ConnectNATS(cfg NATSConfig, logger *log.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "holdem"
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.URL, err)
	}
	return NewNATSBus(conn, logger), nil
}

// NewNATSBus wraps an existing connection
func NewNATSBus(conn *nats.Conn, logger *log.Logger) *NATSBus {
	return &NATSBus{conn: conn, logger: logger.WithPrefix("nats")}
}

// Publish sends ev on topic
func (b *NATSBus) Publish(_ context.Context, topic string, ev protocol.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers events on topic to fn. Undecodable messages are logged
// and dropped.
func (b *NATSBus) Subscribe(topic string, fn Handler) (Subscription, error) {
	sub, err := b.conn.Subscribe(topic, func(m *nats.Msg) {
		var ev protocol.Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			b.logger.Error("Dropping malformed event", "subject", m.Subject, "error", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return sub, nil
}

// Close drains subscriptions and closes the connection
func (b *NATSBus) Close() error {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
