package link

import (
	"encoding/binary"
	"net"

	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

const (
	imrsPortDefault = 21110
	imrsHeaderByte  = 0x11
	imrsDataByte    = 0x22
	imrsTermByte    = 0x33
	imrsFrameBufCap = 1000 * (ysf.FrameLength + 2)
)

// IMRSDestination is one fan-out target for an IMRS DG-ID, spec.md §4.4.
type IMRSDestination struct {
	DGId uint8
	Addr *net.UDPAddr
}

// IMRSRoot owns the single UDP socket shared across every IMRS DG-ID
// slot; slots hold a borrowed reference, never ownership (spec.md §5).
type IMRSRoot struct {
	socket       *netutil.UDPSocket
	fanoutEnable bool
	slots        map[uint8]*IMRSSlot
	log          *logging.Logger
}

// NewIMRSRoot opens the shared socket. fanoutEnable mirrors the
// source's compile-time `#ifdef notdef` gate around outbound fan-out
// (spec.md §9 open question): false keeps the contract defined but
// inert, matching the shipped binary's observed behavior.
func NewIMRSRoot(localAddr string, localPort int, fanoutEnable bool, log *logging.Logger) *IMRSRoot {
	if localPort == 0 {
		localPort = imrsPortDefault
	}
	return &IMRSRoot{
		socket:       netutil.NewUDPSocket(localAddr, localPort),
		fanoutEnable: fanoutEnable,
		slots:        make(map[uint8]*IMRSSlot),
		log:          log.WithComponent("imrsroot"),
	}
}

func (r *IMRSRoot) Open() error { return r.socket.Open() }
func (r *IMRSRoot) Close() error { return r.socket.Close() }

// Slot returns (creating if needed) the per-DG-ID slot for dgid.
func (r *IMRSRoot) Slot(dgid uint8, destinations []IMRSDestination) *IMRSSlot {
	if s, ok := r.slots[dgid]; ok {
		return s
	}
	s := &IMRSSlot{
		root:         r,
		dgid:         dgid,
		destinations: destinations,
		state:        StateNotOpen,
		buffer:       netutil.NewRingBuffer(imrsFrameBufCap, "IMRSSlot"),
	}
	r.slots[dgid] = s
	return s
}

// Dispatch reads one datagram from the shared socket (if any) and
// routes it to the owning slot by matching the sender against each
// slot's destination list.
func (r *IMRSRoot) Dispatch() {
	buf := make([]byte, 256)
	n, addr, err := r.socket.Read(buf)
	if err != nil || n < 7 {
		return
	}
	data := buf[:n]
	for _, s := range r.slots {
		for _, d := range s.destinations {
			if d.Addr.IP.Equal(addr.IP) && d.Addr.Port == addr.Port {
				s.handleInbound(data)
				return
			}
		}
	}
}

// IMRSSlot is the PeerLink view of one IMRS DG-ID: a shared socket plus
// a private destination list and sequence counter.
type IMRSSlot struct {
	root         *IMRSRoot
	dgid         uint8
	destinations []IMRSDestination
	state        State
	seq          uint16
	buffer       *netutil.RingBuffer

	lastTag    string
	lastCaller string
	lastDest   string
}

func (s *IMRSSlot) Open() error  { s.state = StateNotLinked; return nil }
func (s *IMRSSlot) Link()        { s.state = StateLinked }
func (s *IMRSSlot) Unlink()      { s.state = StateNotLinked }
func (s *IMRSSlot) Close() error { s.state = StateNotOpen; return nil }
func (s *IMRSSlot) Status() State { return s.state }
func (s *IMRSSlot) Clock(ms int)  {}

func (s *IMRSSlot) Read() (*ysf.Frame, bool) {
	raw := make([]byte, ysf.FrameLength)
	if _, ok := s.buffer.GetLength(raw); !ok {
		return nil, false
	}
	f, err := ysf.ParseFrame(raw)
	if err != nil {
		return nil, false
	}
	return f, true
}

// Write classifies the frame's FICH and emits the matching IMRS packet
// shape to every destination, per spec.md §4.4's per-DT layout table.
func (s *IMRSSlot) Write(frame *ysf.Frame) error {
	if !s.root.fanoutEnable || s.state != StateLinked {
		return nil
	}
	fich := frame.FICH()

	header := byte(imrsDataByte)
	if fich.FI == ysf.FIHeader {
		header = imrsHeaderByte
		s.seq = 0
	} else if fich.FI == ysf.FITerminator {
		header = imrsTermByte
	}

	block := imrsBlockFor(fich.DT, frame.Payload())
	pkt := make([]byte, 7+len(block))
	pkt[0] = header
	binary.LittleEndian.PutUint16(pkt[1:3], s.seq)
	copy(pkt[3:7], frame.FICHBytes())
	copy(pkt[7:], block)
	s.seq++

	for _, d := range s.destinations {
		_ = s.root.socket.WriteTo(pkt, d.Addr)
	}
	return nil
}

// imrsBlockFor returns the DT-specific trailing block: VD1 -> 20+5*9,
// DATA_FR -> 90, VD2 -> 10+5*13, VOICE_FR -> 20+2*18 or 5*18.
func imrsBlockFor(dt uint8, payload []byte) []byte {
	var size int
	switch dt {
	case ysf.DTVD1:
		size = 20 + 5*9
	case ysf.DTDataFR:
		size = 90
	case ysf.DTVD2:
		size = 10 + 5*13
	case ysf.DTVoiceFR:
		size = 107
	default:
		size = 90
	}
	block := make([]byte, size)
	n := len(payload)
	if n > size {
		n = size
	}
	copy(block, payload[:n])
	return block
}

// handleInbound reconstructs a 155-byte YSFD frame from a received
// IMRS packet. CSD1 (destination/source callsigns) is read from the
// first 20 bytes of a HEADER packet's data block, the position the
// real YSF header frame carries them at.
func (s *IMRSSlot) handleInbound(data []byte) {
	if len(data) < 7 {
		return
	}
	kind := data[0]
	fichBytes := data[3:7]

	if kind == imrsHeaderByte && len(data) >= 7+20 {
		block := data[7:]
		s.lastDest = trimCS(block[0:10])
		s.lastCaller = trimCS(block[10:20])
	}

	f := ysf.NewDataFrame()
	f.SetTag("IMRS      ")
	f.SetCaller(s.lastCaller)

	var fich ysf.FICH
	fich.Decode(fichBytes[:3])
	if fich.CM == 0 || fich.CM == 1 { // GROUP1/GROUP2
		f.SetDest(ysf.AllCallsign)
	} else if s.lastDest != "" {
		f.SetDest(s.lastDest)
	} else {
		f.SetDest(ysf.AllCallsign)
	}
	f.SetFICH(fich)

	if len(data) > 7 {
		copy(f.Payload(), data[7:])
	}

	s.buffer.AddLength(f.Bytes())
}

func trimCS(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}
