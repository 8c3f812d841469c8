package wiresx

import (
	"fmt"

	"github.com/dbehnke/ysf-gateway/internal/correction"
	"github.com/dbehnke/ysf-gateway/internal/hostlist"
)

// Reply byte targets, spec.md §4.5.
const (
	dxReplyLength   = 129
	connReplyLength = 91
	allReplyFixed   = 1029 // fixed area before the 0x03/CRC footer
	notFoundLength  = 31
)

// statusBlock is the 40-byte DX/CONNECT/DISCONNECT status field: either
// the disconnected form ("12" + filler + "000") or the connected form
// ("15" + refId + refName + refCount + refDesc).
const statusBlockLength = 40

func disconnectedStatus() []byte {
	b := make([]byte, statusBlockLength)
	copy(b, []byte("12"))
	for i := 2; i < statusBlockLength-3; i++ {
		b[i] = ' '
	}
	copy(b[statusBlockLength-3:], []byte("000"))
	return b
}

func connectedStatus(r *hostlist.Entry) []byte {
	b := make([]byte, statusBlockLength)
	copy(b, []byte("15"))
	copy(b[2:7], []byte(pad(r.ID, 5)))
	copy(b[7:23], []byte(pad(r.Name, 16)))
	copy(b[23:26], []byte(pad(r.Count, 3)))
	copy(b[26:40], []byte(pad(r.Description, 14)))
	return b
}

// buildIdentityReply assembles the common seq/header/id/node/name/status
// shape shared by the DX, CONNECT and DISCONNECT replies, then pads with
// spaces and appends the 0x03 end marker and additive CRC so the total
// length matches target exactly. The literal spec layout does not
// account for the full 129/91-byte totals field-by-field; the filler
// stands in for the reserved bytes (frequency/squelch info in the real
// protocol) without affecting the tested round-trip property.
func (e *Engine) buildIdentityReply(header [4]byte, status []byte, tail []byte, target int) []byte {
	body := make([]byte, 0, target)
	body = append(body, 0) // seq placeholder, byte 0 per spec; actual seq lives in the frame layer
	body = append(body, header[:]...)
	body = append(body, []byte(pad(e.id, 5))...)
	body = append(body, []byte(e.node)...)
	body = append(body, []byte(e.name)...)
	body = append(body, status...)
	body = append(body, tail...)

	for len(body) < target-2 {
		body = append(body, ' ')
	}
	if len(body) > target-2 {
		body = body[:target-2]
	}
	body = append(body, 0x03)
	body = append(body, correction.AddCRC(body))
	return body
}

func (e *Engine) buildDXReply() []byte {
	header := [4]byte{0x5D, 0x51, 0x5F, 0x26}
	var status []byte
	if e.current != nil {
		status = connectedStatus(e.current)
	} else {
		status = disconnectedStatus()
	}
	freq := make([]byte, 23)
	copy(freq, []byte(fmt.Sprintf("%09d%09d", e.txFrequency, e.rxFrequency)))
	for i := range freq {
		if freq[i] == 0 {
			freq[i] = ' '
		}
	}
	return e.buildIdentityReply(header, status, freq, dxReplyLength)
}

func (e *Engine) buildConnectReply() []byte {
	header := [4]byte{0x5D, 0x41, 0x5F, 0x26}
	var status []byte
	if e.current != nil {
		status = connectedStatus(e.current)
	} else {
		status = disconnectedStatus()
	}
	return e.buildIdentityReply(header, status, []byte("00000"), connReplyLength)
}

func (e *Engine) buildDisconnectReply() []byte {
	header := [4]byte{0x5D, 0x41, 0x5F, 0x26}
	return e.buildIdentityReply(header, disconnectedStatus(), nil, connReplyLength)
}

// catalogRow renders one 50-byte ALL/SEARCH/CATEGORY row:
// "5" + id(5) + name(16) + count(3) + 10 spaces + desc(14) + 0x0D.
func catalogRow(e hostlist.Entry) []byte {
	row := make([]byte, 0, 50)
	row = append(row, '5')
	row = append(row, []byte(pad(e.ID, 5))...)
	row = append(row, []byte(pad(e.Name, 16))...)
	row = append(row, []byte(pad(e.Count, 3))...)
	row = append(row, []byte("          ")...) // 10 spaces
	row = append(row, []byte(pad(e.Description, 14))...)
	row = append(row, 0x0D)
	return row
}

// buildAllReply renders the ALL/CATEGORY layout: code 0x46, subtype
// "21", id, node, counts, then rows padded to the fixed 1029-byte area.
func (e *Engine) buildAllReply(entries []hostlist.Entry, counts string) []byte {
	return e.buildCatalogReply("21", entries, counts, "")
}

// buildSearchReply renders the SEARCH layout (subtype "02"), or the
// 31-byte not-found short form when the needle matched nothing.
func (e *Engine) buildSearchReply() []byte {
	matches := e.registry.Search(e.search)
	if len(matches) == 0 {
		rec := make([]byte, notFoundLength)
		return rec
	}
	count := fmt.Sprintf("%03d%03d", clampCount(len(matches)), clampTotal(len(matches)))
	if len(matches) > 20 {
		matches = matches[:20]
	}
	return e.buildCatalogReply("02", matches, count, "1")
}

func (e *Engine) buildCatalogReply(subtype string, entries []hostlist.Entry, counts, fitsFlag string) []byte {
	body := make([]byte, 0, allReplyFixed+2)
	body = append(body, 0) // seq placeholder
	body = append(body, 0x46)
	body = append(body, []byte(subtype)...)
	body = append(body, []byte(pad(e.id, 5))...)
	body = append(body, []byte(e.node)...)
	body = append(body, []byte(counts)...)
	if fitsFlag != "" {
		body = append(body, []byte(fitsFlag)...)
	}
	body = append(body, 0x0D)

	for _, entry := range entries {
		body = append(body, catalogRow(entry)...)
	}

	for len(body) < allReplyFixed {
		body = append(body, ' ')
	}
	if len(body) > allReplyFixed {
		body = body[:allReplyFixed]
	}
	body = append(body, 0x03)
	body = append(body, correction.AddCRC(body))
	return body
}
