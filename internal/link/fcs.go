package link

import (
	"fmt"
	"net"

	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

const (
	fcsRemotePort  = 62500
	fcsSendPollMS  = 800
	fcsRecvPollMS  = 60000
	fcsResetMS     = 1000
	fcsPingLength  = 25
	fcsInfoLength  = 100
	fcsCloseLength = 11
	fcsDataLength  = 130
	fcsBufferCap   = 1000 * (ysf.FrameLength + 2)
)

// FCSLink is a PeerLink to an xreflector.net FCS room, spec.md §4.3.
type FCSLink struct {
	node       string
	designator string // 8-char room designator, e.g. "FCS00201"
	remoteAddr *net.UDPAddr
	socket     *netutil.UDPSocket
	static     bool

	state     State
	sendPoll  *netutil.Timer
	recvPoll  *netutil.Timer
	resetTmr  *netutil.Timer
	buffer    *netutil.RingBuffer
	seq       uint8
	rxFreq    uint32
	txFreq    uint32
	locator   string
	id        uint32

	log *logging.Logger
}

// NewFCSLink resolves "{first6}.xreflector.net":62500 and builds the link.
// id is the station number reported in the INFO packet, spec.md §4.3.
func NewFCSLink(node, localAddr string, localPort int, designator string, static bool, rxFreq, txFreq uint32, locator string, id uint32, log *logging.Logger) (*FCSLink, error) {
	host := designator
	if len(host) > 6 {
		host = host[:6]
	}
	ip, err := netutil.Lookup(host + ".xreflector.net")
	if err != nil {
		return nil, err
	}
	return &FCSLink{
		node:       node,
		designator: designator,
		remoteAddr: &net.UDPAddr{IP: ip, Port: fcsRemotePort},
		socket:     netutil.NewUDPSocket(localAddr, localPort),
		static:     static,
		state:      StateNotOpen,
		sendPoll:   netutil.NewTimer(fcsSendPollMS),
		recvPoll:   netutil.NewTimer(fcsRecvPollMS),
		resetTmr:   netutil.NewTimer(fcsResetMS),
		buffer:     netutil.NewRingBuffer(fcsBufferCap, "FCSLink"),
		rxFreq:     rxFreq,
		txFreq:     txFreq,
		locator:    locator,
		id:         id,
		log:        log.WithComponent("fcslink"),
	}, nil
}

func (l *FCSLink) Open() error {
	if err := l.socket.Open(); err != nil {
		return err
	}
	l.state = StateNotLinked
	return nil
}

func (l *FCSLink) Link() {
	if l.state == StateNotOpen {
		return
	}
	l.sendPoll.Start()
	l.recvPoll.Start()
	l.sendPing()
	l.state = StateLinking
}

func (l *FCSLink) Unlink() {
	if l.state == StateNotOpen {
		return
	}
	msg := make([]byte, fcsCloseLength)
	copy(msg, "CLOSE      ")
	_ = l.socket.WriteTo(msg, l.remoteAddr)
	l.sendPoll.Stop()
	l.recvPoll.Stop()
	l.resetTmr.Stop()
	l.state = StateNotLinked
}

func (l *FCSLink) Close() error {
	l.state = StateNotOpen
	return l.socket.Close()
}

func (l *FCSLink) Status() State { return l.state }

// Write encodes an outbound YSFD frame into the 130-byte FCS DATA
// packet: payload 120 bytes from frame[35..154], byte 120 = frame[34],
// bytes 121..128 = designator. Byte 129 is reserved (zero).
func (l *FCSLink) Write(frame *ysf.Frame) error {
	if l.state != StateLinked && l.state != StateLinking {
		return nil
	}
	raw := frame.Bytes()
	pkt := make([]byte, fcsDataLength)
	copy(pkt[0:120], raw[35:155])
	pkt[120] = raw[34]
	copy(pkt[121:129], padDesignator(l.designator))
	return l.socket.WriteTo(pkt, l.remoteAddr)
}

func (l *FCSLink) Read() (*ysf.Frame, bool) {
	raw := make([]byte, ysf.FrameLength)
	if _, ok := l.buffer.GetLength(raw); !ok {
		return nil, false
	}
	f, err := ysf.ParseFrame(raw)
	if err != nil {
		return nil, false
	}
	return f, true
}

func (l *FCSLink) sendPing() {
	msg := make([]byte, fcsPingLength)
	copy(msg, "PING")
	copy(msg[4:10], padCallsign6(l.node))
	copy(msg[10:18], padDesignator(l.designator))
	_ = l.socket.WriteTo(msg, l.remoteAddr)
}

func (l *FCSLink) sendInfo() {
	body := fmt.Sprintf("%9d%9d%-6.6s%-12.12s%7d", l.rxFreq, l.txFreq, l.locator, "MMDVM", l.id)
	msg := make([]byte, fcsInfoLength)
	for i := range msg {
		msg[i] = ' '
	}
	copy(msg, body)
	_ = l.socket.WriteTo(msg, l.remoteAddr)
}

func (l *FCSLink) Clock(ms int) {
	if l.state == StateNotOpen || l.state == StateNotLinked {
		l.pollInbound()
		return
	}

	l.sendPoll.Clock(ms)
	l.recvPoll.Clock(ms)
	l.resetTmr.Clock(ms)

	if l.sendPoll.HasExpired() {
		l.sendPing()
		l.sendPoll.Start()
	}
	if l.resetTmr.HasExpired() {
		l.seq = 0
		l.resetTmr.Stop()
	}
	if l.recvPoll.HasExpired() {
		l.log.Warn("lost link")
		if l.static {
			l.state = StateLinking
			l.sendPing()
			l.recvPoll.Start()
		} else {
			l.state = StateNotLinked
			l.sendPoll.Stop()
			l.recvPoll.Stop()
		}
	}

	l.pollInbound()
}

func (l *FCSLink) pollInbound() {
	buf := make([]byte, 200)
	n, _, err := l.socket.Read(buf)
	if err != nil || n == 0 {
		return
	}
	data := buf[:n]

	switch {
	case n == 7 || n == 10:
		if l.state == StateLinking {
			l.sendInfo()
			l.log.Info("linked")
			l.state = StateLinked
		}
		l.recvPoll.Start()
	case n == fcsDataLength:
		if l.state == StateLinked {
			l.enqueueData(data)
			l.recvPoll.Start()
			l.resetTmr.Start()
		}
	default:
		// unrecognised shape, dropped silently
	}
}

// enqueueData reconstructs a YSFD frame from a 130-byte FCS DATA packet
// per spec.md §4.3 and §8 property 6 (seq steps by 2 mod 128, reset
// after 1s of idle).
func (l *FCSLink) enqueueData(data []byte) {
	f := ysf.NewDataFrame()
	name := prettyReflectorName(l.designator)
	f.SetTag(name)
	f.SetCaller(name)
	f.SetDest(ysf.AllCallsign)

	l.seq = (l.seq + 2) % 128
	raw := f.Bytes()
	raw[34] = l.seq
	copy(raw[35:155], data[0:120])

	l.buffer.AddLength(raw)
}

func prettyReflectorName(designator string) string {
	d := designator
	for len(d) < 8 {
		d += "0"
	}
	return fmt.Sprintf("%s-%s", d[2:7], d[6:8])
}

func padCallsign6(cs string) []byte {
	out := make([]byte, 6)
	for i := range out {
		out[i] = ' '
	}
	copy(out, cs)
	return out
}

func padDesignator(d string) []byte {
	out := make([]byte, 8)
	copy(out, d)
	return out
}
