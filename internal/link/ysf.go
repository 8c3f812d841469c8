package link

import (
	"net"

	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

const (
	ysfSendPollMS = 5000
	ysfRecvPollMS = 60000
	ysfBufferCap  = 1000 * (ysf.FrameLength + 2)
)

// YSFLink is a PeerLink to a remote YSF reflector, spec.md §4.2.
type YSFLink struct {
	node       string
	remoteAddr *net.UDPAddr
	socket     *netutil.UDPSocket
	static     bool

	state    State
	sendPoll *netutil.Timer
	recvPoll *netutil.Timer
	buffer   *netutil.RingBuffer

	log *logging.Logger
}

// NewYSFLink builds a YSFLink bound to localAddr:localPort, targeting
// remote host:port.
func NewYSFLink(node, localAddr string, localPort int, remoteHost string, remotePort int, static bool, log *logging.Logger) (*YSFLink, error) {
	ip, err := netutil.Lookup(remoteHost)
	if err != nil {
		return nil, err
	}
	return &YSFLink{
		node:       node,
		remoteAddr: &net.UDPAddr{IP: ip, Port: remotePort},
		socket:     netutil.NewUDPSocket(localAddr, localPort),
		static:     static,
		state:      StateNotOpen,
		sendPoll:   netutil.NewTimer(ysfSendPollMS),
		recvPoll:   netutil.NewTimer(ysfRecvPollMS),
		buffer:     netutil.NewRingBuffer(ysfBufferCap, "YSFLink"),
		log:        log.WithComponent("ysflink"),
	}, nil
}

func (l *YSFLink) Open() error {
	if err := l.socket.Open(); err != nil {
		return err
	}
	l.state = StateNotLinked
	return nil
}

func (l *YSFLink) Link() {
	if l.state == StateNotOpen {
		return
	}
	l.sendPoll.Start()
	l.recvPoll.Start()
	l.sendPollMessage()
	l.state = StateLinking
}

func (l *YSFLink) Unlink() {
	if l.state == StateNotOpen {
		return
	}
	msg := make([]byte, ysf.UnlinkMessageLength)
	copy(msg, ysf.MagicUnlink)
	copy(msg[4:], padCallsign(l.node))
	_ = l.socket.WriteTo(msg, l.remoteAddr)
	l.sendPoll.Stop()
	l.recvPoll.Stop()
	l.state = StateNotLinked
}

func (l *YSFLink) Close() error {
	l.state = StateNotOpen
	return l.socket.Close()
}

func (l *YSFLink) Status() State { return l.state }

func (l *YSFLink) Write(frame *ysf.Frame) error {
	if l.state != StateLinked && l.state != StateLinking {
		return nil
	}
	return l.socket.WriteTo(frame.Bytes(), l.remoteAddr)
}

func (l *YSFLink) Read() (*ysf.Frame, bool) {
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

func (l *YSFLink) sendPollMessage() {
	msg := make([]byte, ysf.PollMessageLength)
	copy(msg, ysf.MagicPoll)
	copy(msg[4:], padCallsign(l.node))
	_ = l.socket.WriteTo(msg, l.remoteAddr)
}

// Clock advances the link's timers and services one pending socket
// read, per spec.md §4.2's state table.
func (l *YSFLink) Clock(ms int) {
	if l.state == StateNotOpen || l.state == StateNotLinked {
		l.pollInbound()
		return
	}

	l.sendPoll.Clock(ms)
	l.recvPoll.Clock(ms)

	if l.sendPoll.HasExpired() {
		l.sendPollMessage()
		l.sendPoll.Start()
	}
	if l.recvPoll.HasExpired() {
		l.log.Warn("lost link")
		if l.static {
			l.state = StateLinking
			l.sendPollMessage()
			l.recvPoll.Start()
		} else {
			l.state = StateNotLinked
			l.sendPoll.Stop()
			l.recvPoll.Stop()
		}
	}

	l.pollInbound()
}

func (l *YSFLink) pollInbound() {
	buf := make([]byte, 200)
	n, addr, err := l.socket.Read(buf)
	if err != nil || n == 0 {
		return
	}
	if l.remoteAddr != nil && addr != nil && !addr.IP.Equal(l.remoteAddr.IP) {
		return
	}
	data := buf[:n]

	switch {
	case n == ysf.PollMessageLength && string(data[:4]) == ysf.MagicPoll:
		if l.state == StateLinking {
			l.log.Info("linked")
			l.state = StateLinked
		}
		l.recvPoll.Start()
	case n == ysf.FrameLength && string(data[:4]) == ysf.MagicData:
		if l.state == StateLinked {
			l.buffer.AddLength(data)
			l.recvPoll.Start()
		}
	default:
		// unknown/mismatched magic: dropped silently, spec.md §7
	}
}

func padCallsign(cs string) []byte {
	out := make([]byte, ysf.CallsignLength)
	for i := range out {
		out[i] = ' '
	}
	copy(out, cs)
	return out
}
