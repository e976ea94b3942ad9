// Package transport defines the pluggable channel contract the PubSub
// Connection uses to move opaque byte buffers on and off the wire, plus
// a URL parser for the transport profile URIs PubSub connections are
// configured with.
package transport

import "time"

// MessageHandler is invoked by Receive for each buffer delivered within
// its timeout. The buffer's lifetime ends when the handler returns; a
// handler that needs to keep the bytes must copy them.
type MessageHandler func(buf []byte)

// Channel is the capability set every concrete transport implements:
// UDP in this package, MQTT and NATS in its subpackages. There is no
// Ethernet channel, although ParseProfileURL accepts opc.eth URLs.
// Channels are expressed as a flat interface
// rather than a shared base struct: each concrete channel owns its own
// state and nothing is inherited between them.
type Channel interface {
	// Open establishes the channel (dial, subscribe, bind) per its
	// configuration. Open is idempotent only in the sense that calling it
	// twice on an already-open channel is an error.
	Open() error

	// Send hands buf to the transport. Non-blocking on UDP; may block
	// briefly up to an internal limit on MQTT. Returns nil only once the
	// bytes are handed off - there is no at-least-once guarantee beyond
	// that.
	Send(buf []byte) error

	// Receive delivers zero or more buffers to handler within timeout.
	// Expiration without a message is not an error.
	Receive(handler MessageHandler, timeout time.Duration) error

	// Yield gives a channel that runs its own protocol machinery a turn
	// before the caller checks again. The MQTT channel sleeps for timeout
	// while paho's goroutines run; it does not step a protocol state
	// machine itself and reports no connection errors. Channels with no
	// internal protocol (UDP, NATS) implement Yield as a no-op so callers
	// can treat every channel uniformly.
	Yield(timeout time.Duration) error

	// Close tears the channel down and releases every resource it
	// acquired in Open, in reverse order. Close is safe to call on a
	// channel that failed to fully open.
	Close() error
}
