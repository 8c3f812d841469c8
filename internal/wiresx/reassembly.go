package wiresx

import "github.com/dbehnke/ysf-gateway/internal/correction"

// commandBufferLength is the maximum size of a reassembled Wires-X
// command, spec.md §3 "command: bytes[≤300]".
const commandBufferLength = 300

// reassembler accumulates DATA_FR_MODE COMMUNICATIONS frames into a
// single command buffer. Data1/Data2 extraction from the FICH-typed
// payload is the declared-external payload codec (spec.md §1); callers
// pass in the already-extracted up-to-40-byte chunk.
type reassembler struct {
	buf [commandBufferLength]byte
}

func (r *reassembler) reset() { r.buf = [commandBufferLength]byte{} }

// add writes a chunk at the slot implied by fn, per spec.md §4.5:
//
//	FN == 1: the chunk is the 20-byte Data2 half, written at offset 0.
//	FN >= 2: the chunk is up to 40 bytes, written at (FN-2)*40+20.
func (r *reassembler) add(data []byte, fn uint8) {
	var offset, max int
	if fn == 1 {
		offset, max = 0, 20
	} else if fn >= 2 {
		offset, max = (int(fn)-2)*40+20, 40
	} else {
		return
	}
	n := len(data)
	if n > max {
		n = max
	}
	if offset+n > len(r.buf) {
		return
	}
	copy(r.buf[offset:offset+n], data[:n])
}

// complete validates the buffer once FN==FT has been observed, looking
// for the 0x03 end marker scanning back from (FN-1)*40+20 and checking
// the following byte against the additive checksum of the prefix
// through and including the marker. It returns the command bytes
// (marker and checksum included) and true on success.
func (r *reassembler) complete(fn uint8) ([]byte, bool) {
	searchFrom := (int(fn)-1)*40 + 20
	if searchFrom >= len(r.buf) {
		searchFrom = len(r.buf) - 1
	}
	for i := searchFrom; i > 0; i-- {
		if r.buf[i] != 0x03 {
			continue
		}
		if i+1 >= len(r.buf) {
			return nil, false
		}
		want := correction.AddCRC(r.buf[:i+1])
		if r.buf[i+1] != want {
			return nil, false
		}
		return r.buf[:i+2], true
	}
	return nil, false
}
