package netutil

import "testing"

func TestRingBufferLengthRoundTrip(t *testing.T) {
	rb := NewRingBuffer(64, "test")
	if !rb.AddLength([]byte("hello")) {
		t.Fatal("AddLength failed")
	}
	if !rb.AddLength([]byte("world!")) {
		t.Fatal("AddLength failed")
	}

	buf := make([]byte, 64)
	n, ok := rb.GetLength(buf)
	if !ok || string(buf[:n]) != "hello" {
		t.Fatalf("got %q, %v", buf[:n], ok)
	}
	n, ok = rb.GetLength(buf)
	if !ok || string(buf[:n]) != "world!" {
		t.Fatalf("got %q, %v", buf[:n], ok)
	}
	if rb.HasData() {
		t.Error("expected empty buffer")
	}
}

func TestRingBufferOverflowDrops(t *testing.T) {
	rb := NewRingBuffer(4, "small")
	if rb.AddData([]byte{1, 2, 3, 4, 5}) {
		t.Fatal("expected overflow to be rejected")
	}
	if rb.HasData() {
		t.Error("rejected write must not partially land")
	}
}

func TestTimerExpiry(t *testing.T) {
	timer := NewTimer(100)
	timer.Start()
	timer.Clock(50)
	if timer.HasExpired() {
		t.Error("should not have expired yet")
	}
	timer.Clock(50)
	if !timer.HasExpired() {
		t.Error("should have expired")
	}
}

func TestTimerZeroTimeoutNeverExpires(t *testing.T) {
	timer := NewTimer(0)
	timer.Start()
	timer.Clock(1_000_000)
	if timer.HasExpired() {
		t.Error("zero timeout must never expire")
	}
}

func TestTimerStopped(t *testing.T) {
	timer := NewTimer(10)
	timer.Clock(100)
	if timer.HasExpired() {
		t.Error("a timer never started must not expire")
	}
}
