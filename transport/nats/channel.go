// Package nats implements transport.Channel over NATS core publish/
// subscribe, using the nats.go client directly rather than through a
// synchronous engine - NATS's client already buffers inbound messages
// on its own goroutine, so Receive only has to drain that buffer.
package nats

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/uapubsub/pubsub/transport"
)

// Config configures a Channel.
type Config struct {
	// Addr is the NATS server URL, e.g. "nats://localhost:4222".
	Addr string

	// PublishSubject is the subject Send publishes to.
	PublishSubject string

	// SubscribeSubject is the subject Receive delivers from. Empty
	// disables subscribing (a write-only channel).
	SubscribeSubject string

	// QoS is carried for uniformity with the other channels but NATS
	// core only supports at-most-once delivery: any value other than 0
	// is rejected by New.
	QoS uint8

	Username string
	Password string

	ConnectTimeout time.Duration
}

// Channel is the transport.Channel implementation for opc.nats:// profile
// URLs. Unlike MQTT, NATS core delivers messages onto a background
// goroutine as soon as Open subscribes; Receive only drains a buffer
// filled by that callback, and Yield is a no-op since there is no
// protocol state machine for the caller to drive.
type Channel struct {
	cfg  Config
	conn *nats.Conn
	sub  *nats.Subscription

	mu      sync.Mutex
	pending [][]byte
}

// New builds a Channel from cfg. It performs no I/O.
func New(cfg Config) (*Channel, error) {
	if cfg.QoS != 0 {
		return nil, fmt.Errorf("transport/nats: QoS %d not supported, NATS core is at-most-once only", cfg.QoS)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Channel{cfg: cfg}, nil
}

// Open dials Addr and, if SubscribeSubject is set, subscribes immediately;
// delivered messages are buffered until a Receive call drains them.
func (c *Channel) Open() error {
	if c.conn != nil {
		return fmt.Errorf("transport/nats: channel already open")
	}
	var opts []nats.Option
	opts = append(opts, nats.Timeout(c.cfg.ConnectTimeout))
	if c.cfg.Username != "" || c.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(c.cfg.Username, c.cfg.Password))
	}

	conn, err := nats.Connect(c.cfg.Addr, opts...)
	if err != nil {
		return fmt.Errorf("transport/nats: connect %s: %w", c.cfg.Addr, err)
	}
	c.conn = conn

	if c.cfg.SubscribeSubject != "" {
		sub, err := conn.Subscribe(c.cfg.SubscribeSubject, func(msg *nats.Msg) {
			c.mu.Lock()
			c.pending = append(c.pending, msg.Data)
			c.mu.Unlock()
		})
		if err != nil {
			conn.Close()
			c.conn = nil
			return fmt.Errorf("transport/nats: subscribe %s: %w", c.cfg.SubscribeSubject, err)
		}
		c.sub = sub
	}
	return nil
}

// Send publishes buf to PublishSubject.
func (c *Channel) Send(buf []byte) error {
	if c.conn == nil {
		return fmt.Errorf("transport/nats: channel not open")
	}
	return c.conn.Publish(c.cfg.PublishSubject, buf)
}

// Receive drains whatever has already been buffered by the subscription
// callback, waiting up to timeout for at least one message if the buffer
// is currently empty.
func (c *Channel) Receive(handler transport.MessageHandler, timeout time.Duration) error {
	if c.conn == nil {
		return fmt.Errorf("transport/nats: channel not open")
	}
	if c.sub == nil {
		return nil
	}

	deadline := time.Now().Add(timeout)
	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()

		if len(batch) > 0 {
			for _, buf := range batch {
				handler(buf)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Yield is a no-op: NATS delivery runs on its own goroutine and has no
// protocol state machine for the caller to advance.
func (c *Channel) Yield(timeout time.Duration) error { return nil }

// Close unsubscribes (if subscribed) and closes the connection.
func (c *Channel) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.conn.Close()
			c.conn = nil
			return fmt.Errorf("transport/nats: unsubscribe: %w", err)
		}
	}
	c.conn.Close()
	c.conn = nil
	return nil
}
