package transport

import (
	"fmt"
	"net"
	"time"
)

// UDPChannel is the Channel implementation for opc.udp:// profile URLs.
// It supports both unicast and multicast addresses; Open joins the
// multicast group when Addr's host is a multicast IP.
type UDPChannel struct {
	addr *net.UDPAddr
	iface *net.Interface

	conn *net.UDPConn

	readBuf []byte
}

// NewUDPChannel builds a channel bound to host:port. ifaceName selects
// the network interface for multicast joins; empty uses the system
// default.
func NewUDPChannel(host string, port int, ifaceName string) (*UDPChannel, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp addr: %w", err)
	}
	ch := &UDPChannel{addr: addr, readBuf: make([]byte, 65535)}
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("transport: lookup interface %q: %w", ifaceName, err)
		}
		ch.iface = iface
	}
	return ch, nil
}

func (c *UDPChannel) Open() error {
	if c.conn != nil {
		return fmt.Errorf("transport: udp channel already open")
	}
	if c.addr.IP != nil && c.addr.IP.IsMulticast() {
		conn, err := net.ListenMulticastUDP("udp", c.iface, c.addr)
		if err != nil {
			return fmt.Errorf("transport: join multicast group: %w", err)
		}
		c.conn = conn
		return nil
	}
	conn, err := net.ListenUDP("udp", c.addr)
	if err != nil {
		return fmt.Errorf("transport: listen udp: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *UDPChannel) Send(buf []byte) error {
	if c.conn == nil {
		return fmt.Errorf("transport: udp channel not open")
	}
	_, err := c.conn.WriteToUDP(buf, c.addr)
	return err
}

func (c *UDPChannel) Receive(handler MessageHandler, timeout time.Duration) error {
	if c.conn == nil {
		return fmt.Errorf("transport: udp channel not open")
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("transport: set read deadline: %w", err)
	}
	n, _, err := c.conn.ReadFromUDP(c.readBuf)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil
		}
		return err
	}
	handler(c.readBuf[:n])
	return nil
}

// Yield is a no-op: UDP owns no internal protocol state to drive.
func (c *UDPChannel) Yield(timeout time.Duration) error { return nil }

func (c *UDPChannel) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
