// Package parrot implements the record/replay store used to echo a
// transmission back to its sender, spec.md §4.9.
package parrot

import "github.com/dbehnke/ysf-gateway/internal/ysf"

const (
	bytesPerSecond = 1550
	slack          = 1000

	turnaroundMS = 2000
	playbackMS   = 100
)

// Store is a fixed-capacity linear buffer of whole 155-byte frames.
type Store struct {
	buf      []byte
	writePos int
	readPos  int
	readable int // bytes available to Read, set by End
}

// New builds a Store sized for timeoutSeconds of audio.
func New(timeoutSeconds int) *Store {
	return &Store{buf: make([]byte, timeoutSeconds*bytesPerSecond+slack)}
}

// Write appends one frame if the buffer has at least slack bytes of
// headroom remaining, per spec.md's `write(frame)` contract.
func (s *Store) Write(frame *ysf.Frame) bool {
	if len(s.buf)-s.writePos < slack {
		return false
	}
	n := copy(s.buf[s.writePos:], frame.Bytes())
	s.writePos += n
	return true
}

// End rewinds the read pointer to the start of the recorded buffer.
func (s *Store) End() {
	s.readable = s.writePos
	s.readPos = 0
}

// Read returns the next 155-byte frame, or false once exhausted. The
// buffer is cleared automatically on exhaustion.
func (s *Store) Read() (*ysf.Frame, bool) {
	if s.readPos+ysf.FrameLength > s.readable {
		s.clear()
		return nil, false
	}
	chunk := s.buf[s.readPos : s.readPos+ysf.FrameLength]
	s.readPos += ysf.FrameLength
	f, err := ysf.ParseFrame(chunk)
	if err != nil {
		s.clear()
		return nil, false
	}
	return f, true
}

// Empty reports whether there is nothing left to record or play.
func (s *Store) Empty() bool { return s.writePos == 0 }

func (s *Store) clear() {
	s.writePos = 0
	s.readPos = 0
	s.readable = 0
}

// Scheduler drives playback timing: a 2 s turnaround after recording
// stops, then one frame every 100 ms, by elapsed-time arithmetic
// rather than wall-clock sleeps (spec.md §5).
type Scheduler struct {
	store     *Store
	waiting   bool
	elapsedMS int
	threshold int // next cumulative elapsedMS at which a frame is due
	emit      func(*ysf.Frame)
}

// NewScheduler wires a Store to an emit callback invoked once per
// paced playback frame.
func NewScheduler(store *Store, emit func(*ysf.Frame)) *Scheduler {
	return &Scheduler{store: store, emit: emit}
}

// Arm starts the turnaround countdown after a recorded transmission ends.
func (sch *Scheduler) Arm() {
	if sch.store.Empty() {
		return
	}
	sch.store.End()
	sch.waiting = true
	sch.elapsedMS = 0
	sch.threshold = turnaroundMS
}

// Clock advances playback timing by ms milliseconds, emitting every
// stored frame whose due time has now elapsed.
func (sch *Scheduler) Clock(ms int) {
	if !sch.waiting {
		return
	}
	sch.elapsedMS += ms

	for sch.elapsedMS >= sch.threshold {
		frame, ok := sch.store.Read()
		if !ok {
			sch.waiting = false
			return
		}
		if sch.emit != nil {
			sch.emit(frame)
		}
		sch.threshold += playbackMS
	}
}
