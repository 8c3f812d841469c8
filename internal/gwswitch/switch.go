// Package gwswitch implements the DG-ID multiplexer (spec.md §4.1):
// up to 100 DGIDEntry slots, each an independent link-state machine,
// selected by first-side-to-break-silence arbitration.
package gwswitch

import (
	"fmt"

	"github.com/dbehnke/ysf-gateway/internal/dtmf"
	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/link"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/wiresx"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

// Kind enumerates a DGIDEntry's link flavor.
type Kind int

const (
	KindYSF Kind = iota
	KindFCS
	KindIMRS
	KindGateway
	KindParrot
	KindYSF2DMR
	KindYSF2NXDN
	KindYSF2P25
)

// Source tracks which side currently owns the selected DG-ID.
type Source int

const (
	SourceNone Source = iota
	SourceRF
	SourceNet
)

// DGIDEntry is one switch slot, spec.md §3 "DGIDEntry".
type DGIDEntry struct {
	DGId          uint8
	Kind          Kind
	Static        bool
	RFHangTimeMS  int
	NetHangTimeMS int
	AllowedModes  uint8 // bitset of DT values
	NetDGId       uint8
	Link          link.PeerLink
}

func (e *DGIDEntry) allows(dt uint8) bool { return e.AllowedModes&dt != 0 }

// BleepNotifier is armed by the switch on state transitions it wants
// surfaced to the operator as tone bursts, the source's bleep table
// (SPEC_FULL supplemented feature).
type BleepNotifier func(count int)

// Switch owns the DG-ID table and the single inactivity timer that
// governs the currently-selected slot.
type Switch struct {
	entries     map[uint8]*DGIDEntry
	currentDGId uint8
	source      Source
	inactivity  *netutil.Timer

	wiresX   *wiresx.Engine
	dtmfDec  *dtmf.Decoder
	registry *hostlist.Registry

	netStateChanged bool
	bleep           BleepNotifier
	writeRF         func(*ysf.Frame)
	wiresXEnabled   bool

	log *logging.Logger
}

// NewSwitch builds an empty Switch. writeRF is called for every frame
// the switch decides to emit back towards the local modem.
func NewSwitch(wiresX *wiresx.Engine, registry *hostlist.Registry, writeRF func(*ysf.Frame), log *logging.Logger) *Switch {
	return &Switch{
		entries:     make(map[uint8]*DGIDEntry),
		currentDGId: ysf.UnsetDGID,
		source:      SourceNone,
		inactivity:  netutil.NewTimer(0),
		wiresX:      wiresX,
		dtmfDec:     dtmf.NewDecoder(),
		registry:    registry,
		writeRF:       writeRF,
		wiresXEnabled: true,
		log:           log.WithComponent("gwswitch"),
	}
}

// SetBleepNotifier registers the tone-burst callback.
func (s *Switch) SetBleepNotifier(b BleepNotifier) { s.bleep = b }

// SetWiresXEnabled gates in-band Wires-X command processing, spec.md
// §6 [YSF Network] enable_wiresx.
func (s *Switch) SetWiresXEnabled(enabled bool) { s.wiresXEnabled = enabled }

// AddEntry opens the entry's link and installs it in the table. A
// slot whose Open fails is never installed, per spec.md §4.1 failure
// semantics.
func (s *Switch) AddEntry(e *DGIDEntry) error {
	if e.Link != nil {
		if err := e.Link.Open(); err != nil {
			return fmt.Errorf("gwswitch: open dgid %d: %w", e.DGId, err)
		}
		if e.Static {
			e.Link.Link()
		}
	}
	s.entries[e.DGId] = e
	return nil
}

func (s *Switch) entryFor(dgid uint8) *DGIDEntry { return s.entries[dgid] }

// ProcessRFFrame routes a frame received from the local modem,
// spec.md §4.1.
func (s *Switch) ProcessRFFrame(frame *ysf.Frame) {
	fich := frame.FICH()

	if fich.DGID == ysf.WiresXDGID {
		if s.wiresXEnabled {
			s.handleWiresXFrame(frame, fich)
		}
		return
	}

	if s.currentDGId == ysf.UnsetDGID {
		routed := ysf.RoutingDGID(fich.DGID)
		entry := s.entryFor(routed)
		if entry == nil {
			return
		}
		if !entry.Static && entry.Link != nil {
			for i := 0; i < 3; i++ {
				entry.Link.Link()
			}
		}
		s.currentDGId = routed
		s.source = SourceRF
		s.netStateChanged = false
	}

	entry := s.entryFor(s.currentDGId)
	if entry == nil {
		return
	}
	if entry.allows(fich.DT) {
		if fich.DGID != ysf.WiresXDGID {
			fich.DGID = entry.NetDGId
		}
		out := frame.Clone()
		out.SetFICH(fich)
		if entry.Link != nil {
			_ = entry.Link.Write(out)
		}
	}

	s.inactivity.SetTimeout(entry.RFHangTimeMS)
	s.inactivity.Start()

	if frame.EOT() {
		s.onRFEndOfTransmission()
	}
}

// ProcessNetFrame routes a frame received from slotIdx's remote link
// back towards RF, spec.md §4.1.
func (s *Switch) ProcessNetFrame(slotIdx uint8, frame *ysf.Frame) {
	if s.currentDGId != ysf.UnsetDGID && s.currentDGId != slotIdx {
		return
	}

	entry := s.entryFor(slotIdx)
	if entry == nil {
		return
	}

	if s.currentDGId == ysf.UnsetDGID {
		s.currentDGId = slotIdx
		s.source = SourceNet
		s.netStateChanged = true
	}

	fich := frame.FICH()
	if fich.DGID != ysf.WiresXDGID {
		fich.DGID = slotIdx
	}
	out := frame.Clone()
	out.SetFICH(fich)
	if s.writeRF != nil {
		s.writeRF(out)
	}

	s.inactivity.SetTimeout(entry.NetHangTimeMS)
	s.inactivity.Start()
}

// Tick advances the inactivity timer, services every linked slot's
// own Clock, routes the frames each slot has received through
// ProcessNetFrame and sends due Wires-X reply frames to RF, spec.md
// §4.1 and §5.
func (s *Switch) Tick(ms int) {
	for dgid, e := range s.entries {
		if e.Link != nil {
			e.Link.Clock(ms)
			for f, ok := e.Link.Read(); ok; f, ok = e.Link.Read() {
				s.ProcessNetFrame(dgid, f)
			}
		}
	}
	s.wiresX.Clock(ms)
	for raw := s.wiresX.NextFrame(); raw != nil; raw = s.wiresX.NextFrame() {
		if f, err := ysf.ParseFrame(raw); err == nil && s.writeRF != nil {
			s.writeRF(f)
		}
	}

	if s.currentDGId == ysf.UnsetDGID {
		return
	}

	s.inactivity.Clock(ms)
	if !s.inactivity.HasExpired() {
		return
	}

	entry := s.entryFor(s.currentDGId)
	if entry != nil && !entry.Static && entry.Link != nil {
		for i := 0; i < 3; i++ {
			entry.Link.Unlink()
		}
	}

	wasRF := s.source == SourceRF
	s.currentDGId = ysf.UnsetDGID
	s.source = SourceNone
	s.inactivity.Stop()

	if wasRF && s.bleep != nil {
		s.bleep(2)
	}
}

// ForceLink selects dgid as the current slot from an operator command
// rather than RF/net traffic, spec.md §6 remote command protocol. It
// refuses to preempt a slot already active from RF or net traffic.
func (s *Switch) ForceLink(dgid uint8) error {
	if s.currentDGId != ysf.UnsetDGID {
		return fmt.Errorf("gwswitch: dgid %d already active", s.currentDGId)
	}
	entry := s.entryFor(dgid)
	if entry == nil {
		return fmt.Errorf("gwswitch: no entry for dgid %d", dgid)
	}
	if entry.Link != nil {
		for i := 0; i < 3; i++ {
			entry.Link.Link()
		}
	}
	s.currentDGId = dgid
	s.source = SourceNet
	s.netStateChanged = true
	s.inactivity.SetTimeout(entry.NetHangTimeMS)
	s.inactivity.Start()
	return nil
}

// ForceUnlink tears down the current slot immediately, spec.md §6
// "UnLink" remote command.
func (s *Switch) ForceUnlink() {
	if s.currentDGId == ysf.UnsetDGID {
		return
	}
	entry := s.entryFor(s.currentDGId)
	if entry != nil && !entry.Static && entry.Link != nil {
		for i := 0; i < 3; i++ {
			entry.Link.Unlink()
		}
	}
	s.currentDGId = ysf.UnsetDGID
	s.source = SourceNone
	s.inactivity.Stop()
}

// Status reports the currently selected slot for the remote "status"
// command, spec.md §6.
func (s *Switch) Status() (dgid uint8, linked bool) {
	if s.currentDGId == ysf.UnsetDGID {
		return 0, false
	}
	return s.currentDGId, true
}

func (s *Switch) onRFEndOfTransmission() {
	if s.bleep == nil {
		return
	}
	if s.netStateChanged {
		s.bleep(3)
	} else {
		s.bleep(1)
	}
}

// handleWiresXFrame feeds the in-band Wires-X payload to the command
// engine and records a connect or disconnect result as the engine's
// current reflector; it does not open, link or unlink any slot.
func (s *Switch) handleWiresXFrame(frame *ysf.Frame, fich ysf.FICH) {
	res := s.wiresX.Process(frame.Payload()[:40], frame.Caller(), fich.FI, fich.DT, fich.FN, fich.FT)
	switch res.Status {
	case wiresx.StatusConnectYSF, wiresx.StatusConnectFCS:
		s.wiresX.SetCurrent(res.Reflector)
	case wiresx.StatusDisconnect:
		s.wiresX.SetCurrent(nil)
	}

	for frame := s.wiresX.NextFrame(); frame != nil; frame = s.wiresX.NextFrame() {
		if s.writeRF != nil {
			f, err := ysf.ParseFrame(frame)
			if err == nil {
				s.writeRF(f)
			}
		}
	}
}
