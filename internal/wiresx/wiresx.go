// Package wiresx implements the in-band Wires-X command engine: frame
// reassembly, command dispatch, and multi-frame paged reply generation
// (spec.md §4.5).
package wiresx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

// Command code signatures, {0x5D, X, 0x5F}, living at command[1:4].
var (
	dxReq   = []byte{0x5D, 0x71, 0x5F}
	connReq = []byte{0x5D, 0x23, 0x5F}
	discReq = []byte{0x5D, 0x2A, 0x5F}
	allReq  = []byte{0x5D, 0x66, 0x5F}
	catReq  = []byte{0x5D, 0x67, 0x5F}
)

// Status is the outward dispatch result of Process.
type Status int

const (
	StatusNone Status = iota
	StatusDX
	StatusAll
	StatusSearch
	StatusCategory
	StatusConnectYSF
	StatusConnectFCS
	StatusDisconnect
	StatusFail
)

// replyKind is the internal pending-reply state, driven by the reply
// delay timer.
type replyKind int

const (
	replyNone replyKind = iota
	replyDX
	replyAll
	replySearch
	replyCategory
	replyConnect
	replyDisconnect
)

// Result is returned from Process.
type Result struct {
	Status    Status
	Reflector *hostlist.Entry // resolved target for CONNECT, nil otherwise
}

// Engine holds Wires-X session state: the reassembly buffer, identity
// strings, the destination catalog, and the paced reply TX queue.
// spec.md §3 "WiresX Session" is a singleton per Gateway.
type Engine struct {
	callsign    string // 10 chars
	node        string // 10 chars
	id          string // 5-digit hash of local name
	name        string // 14 chars
	registry    *hostlist.Registry
	txFrequency uint32
	rxFrequency uint32

	reassembler reassembler
	seqNo       uint8

	pending replyKind
	start   int
	search  string
	catIDs  []string
	current *hostlist.Entry // currently linked reflector, borrowed, never owned

	replyDelay *netutil.Timer
	txQueue    [][]byte
	txElapsed  int
}

// NewEngine builds an Engine. nodeCallsign and suffix compose the
// 10-char node identity exactly as the teacher's NewWiresX does.
func NewEngine(callsign, suffix string, registry *hostlist.Registry) *Engine {
	node := callsign
	if suffix != "" {
		node += "-" + suffix
	}
	e := &Engine{
		callsign:   pad(callsign, 10),
		node:       pad(node, 10),
		registry:   registry,
		replyDelay: netutil.NewTimer(1000),
		txQueue:    make([][]byte, 0, 8),
	}
	return e
}

// SetInfo sets repeater identity fields used in reply bodies.
func (e *Engine) SetInfo(name string, txFrequency, rxFrequency uint32) {
	e.name = pad(name, 14)
	e.txFrequency = txFrequency
	e.rxFrequency = rxFrequency
	e.id = fmt.Sprintf("%05d", fnv32(name)%100000)
}

// SetCurrent sets the currently-linked reflector shown in DX replies.
// Engine never owns this value; the Switch does.
func (e *Engine) SetCurrent(r *hostlist.Entry) { e.current = r }

// Current returns the currently-linked reflector, or nil.
func (e *Engine) Current() *hostlist.Entry { return e.current }

// Process feeds one in-band command frame's payload into the
// reassembler. data is the up-to-40-byte chunk already extracted by
// the (external) payload decoder; source is frame[14:23].
func (e *Engine) Process(data []byte, source string, fi, dt, fn, ft uint8) Result {
	if fi != ysf.FICommunications || dt != ysf.DTDataFR || fn == 0 {
		return Result{Status: StatusNone}
	}
	e.reassembler.add(data, fn)
	if fn != ft {
		return Result{Status: StatusNone}
	}

	cmd, ok := e.reassembler.complete(fn)
	cmd = append([]byte(nil), cmd...)
	e.reassembler.reset()
	if !ok || len(cmd) < 4 {
		return Result{Status: StatusFail}
	}

	code := cmd[1:4]
	switch {
	case bytesEqual(code, dxReq):
		e.pending = replyDX
		e.replyDelay.Start()
		return Result{Status: StatusDX}
	case bytesEqual(code, allReq):
		return e.processAll(cmd)
	case bytesEqual(code, connReq):
		return e.processConnect(cmd)
	case bytesEqual(code, discReq):
		e.pending = replyDisconnect
		e.current = nil
		e.replyDelay.Start()
		return Result{Status: StatusDisconnect}
	case bytesEqual(code, catReq):
		return e.processCategory(cmd)
	default:
		return Result{Status: StatusFail}
	}
}

func (e *Engine) processAll(cmd []byte) Result {
	if len(cmd) < 9 {
		return Result{Status: StatusFail}
	}
	payload := cmd[5:]
	start := atoi3(payload[2:5])
	if start > 0 {
		start--
	}
	e.start = start

	switch {
	case payload[0] == '0' && payload[1] == '1':
		e.pending = replyAll
		e.replyDelay.Start()
		return Result{Status: StatusAll}
	case payload[0] == '1' && payload[1] == '1':
		if len(payload) >= 21 {
			e.search = strings.TrimRight(string(payload[5:21]), " ")
		}
		e.pending = replySearch
		e.replyDelay.Start()
		return Result{Status: StatusSearch}
	}
	return Result{Status: StatusFail}
}

func (e *Engine) processCategory(cmd []byte) Result {
	if len(cmd) < 8 {
		return Result{Status: StatusFail}
	}
	payload := cmd[5:]
	count := atoi2(payload[0:2])
	if count == 0 || count > 20 {
		return Result{Status: StatusFail}
	}
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		off := 2 + i*5
		if off+5 > len(payload) {
			break
		}
		ids = append(ids, string(payload[off:off+5]))
	}
	e.catIDs = ids
	e.pending = replyCategory
	e.replyDelay.Start()
	return Result{Status: StatusCategory}
}

func (e *Engine) processConnect(cmd []byte) Result {
	if len(cmd) < 10 {
		return Result{Status: StatusFail}
	}
	idStr := string(cmd[5:10])
	id, err := strconv.Atoi(strings.TrimSpace(idStr))
	if err != nil || id == 0 {
		return Result{Status: StatusFail}
	}
	full := fmt.Sprintf("%05d", id)
	entry := e.registry.FindByID(full)
	if entry == nil {
		return Result{Status: StatusFail}
	}
	e.current = entry
	e.pending = replyConnect
	e.replyDelay.Start()

	if entry.Kind == hostlist.KindFCS {
		return Result{Status: StatusConnectFCS, Reflector: entry}
	}
	return Result{Status: StatusConnectYSF, Reflector: entry}
}

// Clock advances the reply-delay timer and the TX pacing counter. It
// must be called every loop tick (spec.md §5).
func (e *Engine) Clock(ms int) {
	e.replyDelay.Clock(ms)
	if e.replyDelay.HasExpired() {
		e.fireReply()
		e.replyDelay.Stop()
		e.pending = replyNone
	}

	if len(e.txQueue) > 0 {
		e.txElapsed += ms
	}
}

// NextFrame pops the next paced reply frame, or nil if none is ready
// (either the queue is empty or fewer than 90ms have elapsed since the
// last pop).
func (e *Engine) NextFrame() []byte {
	if len(e.txQueue) == 0 || e.txElapsed < 90 {
		return nil
	}
	frame := e.txQueue[0]
	e.txQueue = e.txQueue[1:]
	e.txElapsed = 0
	return frame
}

func (e *Engine) fireReply() {
	var payload []byte
	switch e.pending {
	case replyDX:
		payload = e.buildDXReply()
	case replyAll:
		entries := e.registry.Page(e.start, pageSize(e.registry.Count()-e.start))
		count := fmt.Sprintf("%03d%03d", clampCount(e.registry.Count()-e.start), clampTotal(e.registry.Count()))
		payload = e.buildAllReply(entries, count)
	case replySearch:
		payload = e.buildSearchReply()
	case replyCategory:
		entries := e.registry.FilterByIDs(e.catIDs)
		count := fmt.Sprintf("%03d%03d", clampCount(len(entries)), clampCount(len(entries)))
		payload = e.buildAllReply(entries, count)
	case replyConnect:
		payload = e.buildConnectReply()
	case replyDisconnect:
		payload = e.buildDisconnectReply()
	default:
		return
	}
	if payload == nil {
		return
	}
	e.enqueueReply(payload)
	// once the reply queue has been primed, start pacing immediately
	e.txElapsed = 90
}

func (e *Engine) enqueueReply(payload []byte) {
	frames := BuildReplyFrames(payload, e.node, e.seqNo)
	e.seqNo += uint8(2 * len(frames))
	e.txQueue = append(e.txQueue, frames...)
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func atoi3(b []byte) int {
	n, _ := strconv.Atoi(strings.TrimSpace(string(b)))
	return n
}

func atoi2(b []byte) int {
	n, _ := strconv.Atoi(strings.TrimSpace(string(b)))
	return n
}

func fnv32(s string) uint32 {
	const prime = 16777619
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

func pageSize(remaining int) int {
	if remaining > 20 {
		return 20
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > 20 {
		return 20
	}
	return n
}

func clampTotal(n int) int {
	if n > 999 {
		return 999
	}
	return n
}
