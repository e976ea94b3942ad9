package transport

import (
	"net"
	"strconv"
	"testing"
	"time"
)

func TestUDPChannel_SendReceiveLoopback(t *testing.T) {
	recv, err := NewUDPChannel("127.0.0.1", 0, "")
	if err != nil {
		t.Fatalf("NewUDPChannel(recv): %v", err)
	}
	if err := recv.Open(); err != nil {
		t.Fatalf("Open(recv): %v", err)
	}
	defer recv.Close()

	// Open() with port 0 binds an ephemeral port; read it back so the
	// sender knows where to dial.
	host, portStr, err := net.SplitHostPort(recv.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	send, err := NewUDPChannel(host, port, "")
	if err != nil {
		t.Fatalf("NewUDPChannel(send): %v", err)
	}
	if err := send.Open(); err != nil {
		t.Fatalf("Open(send): %v", err)
	}
	defer send.Close()

	payload := []byte("hello pubsub")
	if err := send.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var got []byte
	if err := recv.Receive(func(buf []byte) {
		got = append([]byte(nil), buf...)
	}, time.Second); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("received %q, want %q", got, payload)
	}
}

func TestUDPChannel_ReceiveTimesOutWithoutError(t *testing.T) {
	ch, err := NewUDPChannel("127.0.0.1", 0, "")
	if err != nil {
		t.Fatalf("NewUDPChannel: %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ch.Close()

	called := false
	if err := ch.Receive(func([]byte) { called = true }, 10*time.Millisecond); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if called {
		t.Error("handler should not be invoked when nothing arrives before the deadline")
	}
}

func TestUDPChannel_OpenTwiceFails(t *testing.T) {
	ch, err := NewUDPChannel("127.0.0.1", 0, "")
	if err != nil {
		t.Fatalf("NewUDPChannel: %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ch.Close()
	if err := ch.Open(); err == nil {
		t.Fatal("expected a second Open to fail")
	}
}
