package wiresx

import "github.com/dbehnke/ysf-gateway/internal/ysf"

const superblockLength = 259

// ftForLength implements the spec's remaining-length -> frame-count
// table: 20->1, 60->2, 100->3, 140->4, 180->5, 220->6, >220->7.
func ftForLength(n int) uint8 {
	switch {
	case n <= 20:
		return 1
	case n <= 60:
		return 2
	case n <= 100:
		return 3
	case n <= 140:
		return 4
	case n <= 180:
		return 5
	case n <= 220:
		return 6
	default:
		return 7
	}
}

// BuildReplyFrames turns a Wires-X reply payload into the YSF frame
// sequence that carries it: one HEADER frame, FT COMMUNICATIONS frames,
// and one TERMINATOR, per spec.md §4.5. seqNo is the starting value of
// the per-session sequence byte; it increments by 2 per frame and has
// bit 0 set on the terminator.
func BuildReplyFrames(payload []byte, node string, seqNo uint8) [][]byte {
	ft := ftForLength(len(payload))
	bt := uint8((len(payload) + superblockLength - 1) / superblockLength)
	if bt == 0 {
		bt = 1
	}

	frames := make([][]byte, 0, int(ft)+2)
	seq := seqNo

	header := ysf.NewDataFrame()
	header.SetTag(node)
	header.SetCaller(node)
	header.SetDest(ysf.AllCallsign)
	header.SetSeq(seq)
	header.SetFICH(ysf.FICH{FI: ysf.FIHeader, DT: ysf.DTDataFR, DGID: ysf.WiresXDGID, BN: 0, BT: bt, FN: 0, FT: ft})
	frames = append(frames, header.Bytes())
	seq += 2

	offset := 0
	for fn := uint8(1); fn <= ft; fn++ {
		chunkLen := 40
		if fn == 1 {
			chunkLen = 20
		}
		end := offset + chunkLen
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]
		offset = end

		f := ysf.NewDataFrame()
		f.SetTag(node)
		f.SetCaller(node)
		f.SetDest(ysf.AllCallsign)
		f.SetSeq(seq)
		f.SetFICH(ysf.FICH{FI: ysf.FICommunications, DT: ysf.DTDataFR, DGID: ysf.WiresXDGID, BN: 0, BT: bt, FN: fn, FT: ft})
		copy(f.Payload(), chunk)
		frames = append(frames, f.Bytes())
		seq += 2
	}

	term := ysf.NewDataFrame()
	term.SetTag(node)
	term.SetCaller(node)
	term.SetDest(ysf.AllCallsign)
	term.SetSeq(seq | 0x01)
	term.SetFICH(ysf.FICH{FI: ysf.FITerminator, DT: ysf.DTDataFR, DGID: ysf.WiresXDGID, BN: 0, BT: bt, FN: ft, FT: ft})
	frames = append(frames, term.Bytes())

	return frames
}
