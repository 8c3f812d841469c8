package wiresx

import (
	"bytes"
	"testing"

	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

func newTestEngine() *Engine {
	reg := hostlist.NewRegistry()
	reg.Reload([]hostlist.Entry{
		{ID: "00001", Name: "TESTNET", Description: "test reflector", Count: "003", Kind: hostlist.KindYSF},
		{ID: "00002", Name: "ANOTHER", Description: "fcs test room", Count: "012", Kind: hostlist.KindFCS},
	})
	e := NewEngine("N0CALL", "ND", reg)
	e.SetInfo("TEST GATEWAY", 438000000, 438000000)
	return e
}

// TestReassemblyRoundTrip covers spec.md §8 item 5: encoding a 129-byte
// DX reply yields a sequence of >= 4 frames whose decoded reassembly
// equals the original payload.
func TestReassemblyRoundTrip(t *testing.T) {
	e := newTestEngine()
	payload := e.buildDXReply()
	if len(payload) != dxReplyLength {
		t.Fatalf("buildDXReply length = %d, want %d", len(payload), dxReplyLength)
	}

	frames := BuildReplyFrames(payload, e.node, 0)
	if len(frames) < 4 {
		t.Fatalf("got %d frames, want >= 4", len(frames))
	}

	var rx reassembler
	var ft uint8
	for _, raw := range frames {
		f, err := ysf.ParseFrame(raw)
		if err != nil {
			t.Fatalf("ParseFrame: %v", err)
		}
		fich := f.FICH()
		if fich.FI != ysf.FICommunications {
			continue
		}
		rx.add(f.Payload()[:chunkLenFor(fich.FN)], fich.FN)
		ft = fich.FT
	}

	got, ok := rx.complete(ft)
	if !ok {
		t.Fatal("reassembly did not complete")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled %v, want %v", got, payload)
	}
}

func chunkLenFor(fn uint8) int {
	if fn == 1 {
		return 20
	}
	return 40
}

// buildCommand constructs a full command buffer (signature + payload +
// 0x03 marker + checksum) and splits it into the chunk sequence Process
// expects, mirroring reassembler.add's slotting.
func buildCommand(t *testing.T, body []byte) [][]byte {
	t.Helper()
	full := append([]byte{}, body...)
	full = append(full, 0x03)
	sum := uint8(0)
	for _, b := range full {
		sum += b
	}
	full = append(full, sum)

	var chunks [][]byte
	// FN=1: bytes [0:20]
	end := 20
	if end > len(full) {
		end = len(full)
	}
	chunks = append(chunks, full[:end])
	offset := end
	for offset < len(full) {
		end = offset + 40
		if end > len(full) {
			end = len(full)
		}
		chunks = append(chunks, full[offset:end])
		offset = end
	}
	return chunks
}

func feedCommand(e *Engine, chunks [][]byte) Result {
	ft := uint8(len(chunks))
	var res Result
	for i, c := range chunks {
		fn := uint8(i + 1)
		res = e.Process(c, "N0CALL    ", ysf.FICommunications, ysf.DTDataFR, fn, ft)
	}
	return res
}

func TestProcessDX(t *testing.T) {
	e := newTestEngine()
	chunks := buildCommand(t, []byte{0, 0x5D, 0x71, 0x5F})
	res := feedCommand(e, chunks)
	if res.Status != StatusDX {
		t.Fatalf("status = %v, want StatusDX", res.Status)
	}
}

func TestProcessConnectYSF(t *testing.T) {
	e := newTestEngine()
	body := []byte{0, 0x5D, 0x23, 0x5F, 0}
	body = append(body, []byte("00001")...)
	chunks := buildCommand(t, body)
	res := feedCommand(e, chunks)
	if res.Status != StatusConnectYSF {
		t.Fatalf("status = %v, want StatusConnectYSF", res.Status)
	}
	if res.Reflector == nil || res.Reflector.ID != "00001" {
		t.Fatalf("reflector = %+v, want id 00001", res.Reflector)
	}
}

func TestProcessConnectFCS(t *testing.T) {
	e := newTestEngine()
	body := []byte{0, 0x5D, 0x23, 0x5F, 0}
	body = append(body, []byte("00002")...)
	chunks := buildCommand(t, body)
	res := feedCommand(e, chunks)
	if res.Status != StatusConnectFCS {
		t.Fatalf("status = %v, want StatusConnectFCS", res.Status)
	}
}

func TestProcessDisconnect(t *testing.T) {
	e := newTestEngine()
	e.SetCurrent(&hostlist.Entry{ID: "00001"})
	chunks := buildCommand(t, []byte{0, 0x5D, 0x2A, 0x5F})
	res := feedCommand(e, chunks)
	if res.Status != StatusDisconnect {
		t.Fatalf("status = %v, want StatusDisconnect", res.Status)
	}
	if e.Current() != nil {
		t.Fatal("expected current reflector cleared")
	}
}

func TestProcessAll(t *testing.T) {
	e := newTestEngine()
	body := []byte{0, 0x5D, 0x66, 0x5F, 0}
	body = append(body, []byte("01000")...)
	chunks := buildCommand(t, body)
	res := feedCommand(e, chunks)
	if res.Status != StatusAll {
		t.Fatalf("status = %v, want StatusAll", res.Status)
	}
}

func TestProcessCategory(t *testing.T) {
	e := newTestEngine()
	body := []byte{0, 0x5D, 0x67, 0x5F, 0}
	body = append(body, []byte("01")...)
	body = append(body, []byte("00001")...)
	chunks := buildCommand(t, body)
	res := feedCommand(e, chunks)
	if res.Status != StatusCategory {
		t.Fatalf("status = %v, want StatusCategory", res.Status)
	}
}

func TestClockFiresReplyAndPaces(t *testing.T) {
	e := newTestEngine()
	chunks := buildCommand(t, []byte{0, 0x5D, 0x71, 0x5F})
	feedCommand(e, chunks)

	e.Clock(1000)
	if len(e.txQueue) == 0 {
		t.Fatal("expected queued reply frames after reply delay expires")
	}

	if f := e.NextFrame(); f == nil {
		t.Fatal("expected first frame ready immediately after fire")
	}
	if f := e.NextFrame(); f != nil {
		t.Fatal("expected pacing to withhold the next frame before 90ms elapse")
	}
	e.Clock(90)
	if f := e.NextFrame(); f == nil {
		t.Fatal("expected a frame after 90ms of pacing")
	}
}

func TestSearchNotFound(t *testing.T) {
	e := newTestEngine()
	e.search = "NOSUCHNAME"
	payload := e.buildSearchReply()
	if len(payload) != notFoundLength {
		t.Fatalf("not-found reply length = %d, want %d", len(payload), notFoundLength)
	}
}
