package mqtt

import "testing"

func TestNew_RejectsInvalidQoS(t *testing.T) {
	_, err := New(Config{Addr: "tcp://localhost:1883", QoS: 3})
	if err == nil {
		t.Fatal("expected an error for a QoS value beyond 2")
	}
}

func TestNew_AppliesDefaultConnectTimeout(t *testing.T) {
	ch, err := New(Config{Addr: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ch.cfg.ConnectTimeout <= 0 {
		t.Error("expected New to fill in a positive default ConnectTimeout")
	}
}

func TestChannel_SendBeforeOpen_Fails(t *testing.T) {
	ch, err := New(Config{Addr: "tcp://localhost:1883", PublishTopic: "pubsub/out"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Send([]byte("hello")); err == nil {
		t.Fatal("expected Send before Open to fail")
	}
}

func TestChannel_ReceiveBeforeOpen_Fails(t *testing.T) {
	ch, err := New(Config{Addr: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Receive(func([]byte) {}, 0); err == nil {
		t.Fatal("expected Receive before Open to fail")
	}
}

func TestChannel_YieldBeforeOpen_Fails(t *testing.T) {
	ch, err := New(Config{Addr: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Yield(0); err == nil {
		t.Fatal("expected Yield before Open to fail")
	}
}

func TestChannel_CloseBeforeOpen_IsNoOp(t *testing.T) {
	ch, err := New(Config{Addr: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close on an unopened channel should be a no-op, got %v", err)
	}
}

func TestChannel_DrainPending_EmptyWhenNothingQueued(t *testing.T) {
	ch := &Channel{}
	if got := ch.drainPending(); got != nil {
		t.Fatalf("drainPending() on a fresh channel = %v, want nil", got)
	}
}

func TestChannel_DrainPending_ReturnsAndClearsQueue(t *testing.T) {
	ch := &Channel{}
	ch.pending = [][]byte{[]byte("a"), []byte("b")}
	got := ch.drainPending()
	if len(got) != 2 {
		t.Fatalf("drainPending() = %v, want 2 entries", got)
	}
	if ch.drainPending() != nil {
		t.Fatal("expected the queue to be empty after draining once")
	}
}
