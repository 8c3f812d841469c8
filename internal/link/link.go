// Package link implements the per-link protocol state machines the
// Switch drives: YSFLink (§4.2), FCSLink (§4.3) and IMRSLink (§4.4).
// All three satisfy PeerLink so the Switch can treat every DGIDEntry
// uniformly.
package link

import "github.com/dbehnke/ysf-gateway/internal/ysf"

// State is a link's connection state, spec.md §3 "Link State".
type State int

const (
	StateNotOpen State = iota
	StateNotLinked
	StateLinking
	StateLinked
)

func (s State) String() string {
	switch s {
	case StateNotOpen:
		return "NOT_OPEN"
	case StateNotLinked:
		return "NOT_LINKED"
	case StateLinking:
		return "LINKING"
	case StateLinked:
		return "LINKED"
	default:
		return "UNKNOWN"
	}
}

// PeerLink is the uniform capability record the Switch dispatches
// through, replacing the source's vtable over CDGIdNetwork (spec.md §9).
type PeerLink interface {
	Open() error
	Link()
	Unlink()
	Close() error
	Write(frame *ysf.Frame) error
	Read() (*ysf.Frame, bool)
	Clock(ms int)
	Status() State
}
