package parrot

import (
	"testing"

	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s := New(1) // 1550+1000 = 2550 bytes, room for 11 frames
	f := ysf.NewDataFrame()
	f.SetCaller("W1AW")
	if !s.Write(f) {
		t.Fatal("expected Write to succeed with headroom")
	}
	s.End()

	got, ok := s.Read()
	if !ok {
		t.Fatal("expected a frame back")
	}
	if got.Caller() != "W1AW" {
		t.Fatalf("Caller() = %q, want W1AW", got.Caller())
	}

	if _, ok := s.Read(); ok {
		t.Fatal("expected exhaustion after single stored frame")
	}
}

func TestWriteRejectedNearCapacity(t *testing.T) {
	s := New(0) // 1000 bytes: the first frame is accepted, the 2nd would not leave 1000 free
	f := ysf.NewDataFrame()
	wrote := 0
	for i := 0; i < 10; i++ {
		if s.Write(f) {
			wrote++
		} else {
			break
		}
	}
	if wrote != 1 {
		t.Fatalf("wrote = %d, want 1 (a 1000-byte buffer has exactly one 155-byte frame of headroom above the 1000-byte slack)", wrote)
	}
}

func TestSchedulerPacesPlayback(t *testing.T) {
	s := New(1)
	for i := 0; i < 3; i++ {
		f := ysf.NewDataFrame()
		f.SetCaller("PARROT")
		s.Write(f)
	}

	var emitted int
	sch := NewScheduler(s, func(*ysf.Frame) { emitted++ })
	sch.Arm()

	sch.Clock(1999)
	if emitted != 0 {
		t.Fatalf("emitted = %d before turnaround elapsed, want 0", emitted)
	}

	sch.Clock(1) // crosses the 2000ms turnaround boundary
	if emitted != 1 {
		t.Fatalf("emitted = %d at turnaround, want 1", emitted)
	}

	sch.Clock(100)
	if emitted != 2 {
		t.Fatalf("emitted = %d after one playback tick, want 2", emitted)
	}

	sch.Clock(100)
	if emitted != 3 {
		t.Fatalf("emitted = %d after final frame, want 3", emitted)
	}
}
