// Package reflector implements the star-topology YSF reflector server:
// a peer registry, fan-out forwarder, blocklist consultation and
// transmission watchdog (spec.md §4.7).
package reflector

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/dbehnke/ysf-gateway/internal/blocklist"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/status"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

const (
	pollAllMS    = 5000
	peerSilentMS = 60000
	dumpMS       = 120000
	watchdogMS   = 1500

	peerReplyTag = "REFLECTOR "
)

// Peer is a registered reflector client, keyed by source address.
type Peer struct {
	Callsign  string
	Addr      *net.UDPAddr
	LastHeard *netutil.Timer
}

// Reflector owns the peer table, the shared socket, and the
// in-progress-transmission watchdog.
type Reflector struct {
	id          string
	name        string
	description string

	socket    *netutil.UDPSocket
	blockList *blocklist.List
	audit     *blocklist.Auditor

	peers map[string]*Peer // keyed by addr.String()

	pollAll  *netutil.Timer
	dumpTmr  *netutil.Timer
	watchdog *netutil.Timer
	txActive bool
	txTag    string
	txSrc    string
	txDst    string

	onEvent func(status.Event)

	log *logging.Logger
}

// Config names the identity fields a YSFS query echoes back.
type Config struct {
	ID          string
	Name        string
	Description string
	LocalAddr   string
	LocalPort   int
	BlockList   *blocklist.List
	Audit       *blocklist.Auditor
}

// New builds a Reflector bound to localAddr:localPort.
func New(cfg Config, log *logging.Logger) *Reflector {
	return &Reflector{
		id:          cfg.ID,
		name:        cfg.Name,
		description: cfg.Description,
		socket:      netutil.NewUDPSocket(cfg.LocalAddr, cfg.LocalPort),
		blockList:   cfg.BlockList,
		audit:       cfg.Audit,
		peers:       make(map[string]*Peer),
		pollAll:     netutil.NewTimer(pollAllMS),
		dumpTmr:     netutil.NewTimer(dumpMS),
		watchdog:    netutil.NewTimer(watchdogMS),
		log:         log.WithComponent("reflector"),
	}
}

// Open binds the socket and arms the periodic timers.
func (r *Reflector) Open() error {
	if err := r.socket.Open(); err != nil {
		return err
	}
	r.pollAll.Start()
	r.dumpTmr.Start()
	return nil
}

func (r *Reflector) Close() error { return r.socket.Close() }

// SetEventSink registers a callback fired on peer connect/disconnect,
// typically (*status.Server).Broadcast.
func (r *Reflector) SetEventSink(fn func(status.Event)) { r.onEvent = fn }

func (r *Reflector) emit(eventType, callsign string) {
	if r.onEvent != nil {
		r.onEvent(status.Event{Type: eventType, Callsign: callsign})
	}
}

// Tick drives the periodic poll-all, peer-silence eviction, and table
// dump timers, plus the in-progress-transmission watchdog.
func (r *Reflector) Tick(ms int) {
	r.pollAll.Clock(ms)
	if r.pollAll.HasExpired() {
		r.pollAllPeers()
		r.pollAll.Start()
	}

	r.dumpTmr.Clock(ms)
	if r.dumpTmr.HasExpired() {
		r.dumpPeerTable()
		r.dumpTmr.Start()
	}

	for key, p := range r.peers {
		p.LastHeard.Clock(ms)
		if p.LastHeard.HasExpired() {
			r.log.Info("evicting silent peer", zap.String("callsign", p.Callsign))
			r.emit("disconnect", p.Callsign)
			delete(r.peers, key)
		}
	}

	if r.txActive {
		r.watchdog.Clock(ms)
		if r.watchdog.HasExpired() {
			r.txActive = false
		}
	}
}

func (r *Reflector) pollAllPeers() {
	msg := make([]byte, ysf.PollMessageLength)
	copy(msg, "YSFP")
	copy(msg[4:14], peerReplyTag)
	for _, p := range r.peers {
		_ = r.socket.WriteTo(msg, p.Addr)
	}
}

func (r *Reflector) dumpPeerTable() {
	r.log.Info(fmt.Sprintf("peer table: %d peers", len(r.peers)))
}

// Dispatch reads one datagram (if any) and processes it per spec.md §4.7.
func (r *Reflector) Dispatch() {
	buf := make([]byte, 512)
	n, addr, err := r.socket.Read(buf)
	if err != nil || n == 0 {
		return
	}
	data := buf[:n]
	key := addr.String()

	switch {
	case n == ysf.PollMessageLength && string(data[0:4]) == ysf.MagicPoll:
		r.handlePoll(key, addr, data)
	case n == ysf.UnlinkMessageLength && string(data[0:4]) == ysf.MagicUnlink:
		if p, ok := r.peers[key]; ok {
			r.emit("disconnect", p.Callsign)
		}
		delete(r.peers, key)
	case n == ysf.StatusMessageLength && string(data[0:4]) == ysf.MagicStatus:
		r.handleStatus(addr)
	case n == ysf.OptionMessageLength && string(data[0:4]) == ysf.MagicOption:
		// silently ignored
	case n == ysf.InfoMessageLength && string(data[0:4]) == ysf.MagicInfo:
		// silently ignored
	case n == ysf.FrameLength && string(data[0:4]) == ysf.MagicData:
		r.handleData(key, addr, data)
	default:
		// malformed, dropped silently
	}
}

func (r *Reflector) handlePoll(key string, addr *net.UDPAddr, data []byte) {
	p, ok := r.peers[key]
	if !ok {
		p = &Peer{Addr: addr, LastHeard: netutil.NewTimer(peerSilentMS)}
		r.peers[key] = p
		r.emit("connect", trimCS(data[4:14]))
	}
	p.Callsign = trimCS(data[4:14])
	p.LastHeard.SetTimeout(peerSilentMS)
	p.LastHeard.Start()

	msg := make([]byte, ysf.PollMessageLength)
	copy(msg, "YSFP")
	copy(msg[4:14], peerReplyTag)
	_ = r.socket.WriteTo(msg, addr)
}

func (r *Reflector) handleStatus(addr *net.UDPAddr) {
	reply := fmt.Sprintf("YSFS%05s%-16.16s%-14.14s%03d", r.hashID(), r.name, r.description, len(r.peers))
	_ = r.socket.WriteTo([]byte(reply), addr)
}

func (r *Reflector) hashID() string {
	if len(r.id) >= 5 {
		return r.id[:5]
	}
	return fmt.Sprintf("%05s", r.id)
}

func (r *Reflector) handleData(key string, addr *net.UDPAddr, data []byte) {
	frame, err := ysf.ParseFrame(data)
	if err != nil {
		return
	}

	if !r.txActive {
		src := frame.Caller()
		blocked := r.blockList != nil && r.blockList.Check(src)
		if r.audit != nil {
			r.audit.Record(src, key, blocked)
		}
		if blocked {
			r.log.Warn("blocked")
			return
		}
		r.txActive = true
		r.txTag = frame.Tag()
		r.txSrc = src
		r.txDst = frame.Dest()
	} else {
		if src := frame.Caller(); src != r.txSrc {
			r.log.Info("transmission src updated")
			r.txSrc = src
		}
		if dst := frame.Dest(); dst != r.txDst {
			r.log.Info("transmission dst updated")
			r.txDst = dst
		}
	}

	for pk, p := range r.peers {
		if pk == key {
			continue
		}
		_ = r.socket.WriteTo(data, p.Addr)
	}

	if frame.EOT() {
		r.txActive = false
		r.watchdog.Stop()
	} else {
		r.watchdog.SetTimeout(watchdogMS)
		r.watchdog.Start()
	}
}

// Peers implements status.Snapshotter.
func (r *Reflector) Peers() []status.PeerView {
	out := make([]status.PeerView, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, status.PeerView{Callsign: p.Callsign, Address: p.Addr.String()})
	}
	return out
}

func trimCS(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}
