package ysf

// FICH (Frame Information CHannel) fields, per spec.md §3. The real YSF
// wire format Golay-codes and whitens these 24 bits; that codec is a
// declared-external collaborator (spec.md §1), so Decode/Encode here is
// a direct bit-packing stand-in that preserves the field contract the
// core depends on: round-tripping a FICH through Encode/Decode is
// lossless, and DG-ID rewriting only ever touches the DGID field.
type FICH struct {
	FI   uint8 // HEADER=0, COMMUNICATIONS=1, TERMINATOR=2
	DT   uint8 // VD1=1, DataFR=2, VD2=4, VoiceFR=8
	CM   uint8 // call mode: 0/1 group, 3 individual
	BN   uint8 // block number
	BT   uint8 // block total
	FN   uint8 // frame number
	FT   uint8 // frame total
	DGID uint8 // 0..127
}

// FI values.
const (
	FIHeader         = 0
	FICommunications = 1
	FITerminator     = 2
)

// DT values, a bitset so a DGIDEntry's allowedModes can be a plain
// uint8 mask tested with a single bit-and.
const (
	DTVD1     = 1
	DTDataFR  = 2
	DTVD2     = 4
	DTVoiceFR = 8
)

var dtToCode = map[uint8]uint8{DTVD1: 0, DTDataFR: 1, DTVD2: 2, DTVoiceFR: 3}
var codeToDT = [4]uint8{DTVD1, DTDataFR, DTVD2, DTVoiceFR}

// Decode unpacks 3 bytes into the FICH fields.
func (f *FICH) Decode(b []byte) {
	_ = b[2]
	bits := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])

	f.FI = uint8(bits>>22) & 0x3
	dtCode := uint8(bits>>20) & 0x3
	f.DT = codeToDT[dtCode]
	f.CM = uint8(bits>>18) & 0x3
	f.FN = uint8(bits>>15) & 0x7
	f.FT = uint8(bits>>12) & 0x7
	f.BN = uint8(bits>>10) & 0x3
	f.BT = uint8(bits>>7) & 0x7
	f.DGID = uint8(bits) & 0x7F
}

// Encode packs the FICH fields into 3 bytes.
func (f *FICH) Encode(b []byte) {
	_ = b[2]
	dtCode, ok := dtToCode[f.DT]
	if !ok {
		dtCode = 0
	}
	bits := uint32(f.FI&0x3)<<22 |
		uint32(dtCode&0x3)<<20 |
		uint32(f.CM&0x3)<<18 |
		uint32(f.FN&0x7)<<15 |
		uint32(f.FT&0x7)<<12 |
		uint32(f.BN&0x3)<<10 |
		uint32(f.BT&0x7)<<7 |
		uint32(f.DGID&0x7F)

	b[0] = byte(bits >> 16)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits)
}

// RoutingDGID maps the Wires-X magic DG-ID (127) to routing slot 0;
// every other value passes through unchanged.
func RoutingDGID(dgid uint8) uint8 {
	if dgid == WiresXDGID {
		return RoutingDGIDForWiresX
	}
	return dgid
}
