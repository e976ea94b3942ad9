// Package mqtt implements transport.Channel over the MQTT protocol using
// the eclipse/paho.mqtt.golang client library as the wire driver.
package mqtt

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/uapubsub/pubsub/transport"
)

// Config configures a Channel.
type Config struct {
	// Addr is the broker URI, e.g. "tcp://host:1883" or "ssl://host:8883".
	Addr string

	// PublishTopic is the topic Send publishes to.
	PublishTopic string

	// SubscribeTopic is the filter Receive subscribes to. Empty disables
	// subscribing (a write-only channel).
	SubscribeTopic string

	// QoS applies to both publish and subscribe. Must be 0, 1, or 2.
	QoS byte

	Retained bool

	ClientID string
	Username string
	Password string

	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	CleanSession   bool

	// TLSConfig, if set, is handed to the paho client options so it wraps
	// the connection in TLS before the MQTT handshake starts.
	TLSConfig *tls.Config
}

// Channel is the transport.Channel implementation for opc.mqtt:// profile
// URLs. Open builds a paho client and runs its CONNECT/CONNACK exchange
// (and, if SubscribeTopic is set, the SUBSCRIBE/SUBACK exchange) to
// completion before returning, so a Send or Receive immediately after
// Open never races an unacknowledged handshake.
//
// paho.mqtt.golang drives keep-alive and acks on its own internal
// goroutines (automatic reconnection is switched off in Open); Yield and Receive never need to pump a state
// machine themselves, only wait for paho's subscription callback to have
// appended something to pending.
//
// On any error returned from Open, the caller must not call any other
// method except Close - Open cleans up its own partial state on failure,
// but does not leave the channel usable.
type Channel struct {
	cfg    Config
	client paho.Client

	mu      sync.Mutex
	pending [][]byte
}

// New builds a Channel from cfg. It performs no I/O.
func New(cfg Config) (*Channel, error) {
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("transport/mqtt: invalid QoS %d", cfg.QoS)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Channel{cfg: cfg}, nil
}

// Open connects to Addr and, if SubscribeTopic is set, subscribes to it.
// Any failure at any stage tears down everything already opened before
// returning.
func (c *Channel) Open() error {
	if c.client != nil {
		return fmt.Errorf("transport/mqtt: channel already open")
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.Addr)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetCleanSession(c.cfg.CleanSession)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetAutoReconnect(false)
	if c.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(c.cfg.KeepAlive)
	}
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}
	if c.cfg.TLSConfig != nil {
		opts.SetTLSConfig(c.cfg.TLSConfig)
	}
	if c.cfg.SubscribeTopic != "" {
		opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
			buf := make([]byte, len(msg.Payload()))
			copy(buf, msg.Payload())
			c.mu.Lock()
			c.pending = append(c.pending, buf)
			c.mu.Unlock()
		})
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("transport/mqtt: connect to %s timed out", c.cfg.Addr)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("transport/mqtt: connect: %w", err)
	}
	c.client = client

	if c.cfg.SubscribeTopic != "" {
		subToken := client.Subscribe(c.cfg.SubscribeTopic, c.cfg.QoS, nil)
		if !subToken.WaitTimeout(c.cfg.ConnectTimeout) {
			client.Disconnect(0)
			c.client = nil
			return fmt.Errorf("transport/mqtt: subscribe %s timed out", c.cfg.SubscribeTopic)
		}
		if err := subToken.Error(); err != nil {
			client.Disconnect(0)
			c.client = nil
			return fmt.Errorf("transport/mqtt: subscribe %s: %w", c.cfg.SubscribeTopic, err)
		}
	}

	return nil
}

// Send publishes buf to PublishTopic and waits, at most ConnectTimeout,
// for its ack (QoS 1/2) or for the library to hand it to the network
// layer (QoS 0).
func (c *Channel) Send(buf []byte) error {
	if c.client == nil {
		return fmt.Errorf("transport/mqtt: channel not open")
	}
	token := c.client.Publish(c.cfg.PublishTopic, c.cfg.QoS, c.cfg.Retained, buf)
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("transport/mqtt: publish to %s timed out", c.cfg.PublishTopic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("transport/mqtt: publish: %w", err)
	}
	return nil
}

// Receive drains any buffers paho's subscription callback has already
// appended to pending; if none have arrived yet it polls briefly until
// timeout elapses.
func (c *Channel) Receive(handler transport.MessageHandler, timeout time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("transport/mqtt: channel not open")
	}
	const pollInterval = 5 * time.Millisecond
	deadline := time.Now().Add(timeout)
	for {
		pending := c.drainPending()
		if len(pending) > 0 {
			for _, buf := range pending {
				handler(buf)
			}
			return nil
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

func (c *Channel) drainPending() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	pending := c.pending
	c.pending = nil
	return pending
}

// Yield gives paho's background goroutines (keep-alive, ack bookkeeping,
// subscription dispatch) a chance to run before the caller checks again;
// the client owns its own I/O goroutines, so this is a sleep rather than
// a pump.
func (c *Channel) Yield(timeout time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("transport/mqtt: channel not open")
	}
	time.Sleep(timeout)
	return nil
}

// Close unsubscribes (if subscribed) and disconnects, in that order.
func (c *Channel) Close() error {
	if c.client == nil {
		return nil
	}
	if c.cfg.SubscribeTopic != "" {
		c.client.Unsubscribe(c.cfg.SubscribeTopic).Wait()
	}
	c.client.Disconnect(250)
	c.client = nil
	return nil
}
