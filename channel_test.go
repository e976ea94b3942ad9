package pubsub

import (
	"time"

	"github.com/uapubsub/pubsub/transport"
)

// fakeChannel is an in-memory transport.Channel for tests: Send appends to
// a queue, Receive drains it. There is no real network involved, so
// timeouts are irrelevant - every call either has data or returns
// immediately.
type fakeChannel struct {
	opened   bool
	closed   bool
	openErr  error
	sent     [][]byte
	inbound  [][]byte
	sendErr  error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (c *fakeChannel) Open() error {
	if c.openErr != nil {
		return c.openErr
	}
	c.opened = true
	return nil
}

func (c *fakeChannel) Send(buf []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *fakeChannel) Receive(handler transport.MessageHandler, timeout time.Duration) error {
	for _, buf := range c.inbound {
		handler(buf)
	}
	c.inbound = nil
	return nil
}

func (c *fakeChannel) Yield(timeout time.Duration) error { return nil }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

var _ transport.Channel = (*fakeChannel)(nil)
