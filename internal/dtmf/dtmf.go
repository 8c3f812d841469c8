// Package dtmf decodes DTMF keystrokes embedded in VD-Mode2 voice
// payloads and assembles them into Wires-X style connect/disconnect
// commands, spec.md §4.6.
package dtmf

// sliceLength is the size of one of the five AMBE slices in a VD-Mode2
// voice frame.
const sliceLength = 13

// silenceSlice replaces a matched DTMF slice so downstream voice
// carries no tone.
var silenceSlice = [sliceLength]byte{0x9E, 0x8D, 0x32, 0x88, 0x26, 0x1A, 0x3F, 0x61, 0xE8, 0x15, 0x9E, 0x8D, 0x32}

// dtmfVD2Mask and dtmfVD2Sig are the bit-mask/signature pair a slice
// must match (after AND) to be recognised as a DTMF tone frame.
var dtmfVD2Mask = [sliceLength]byte{
	0x01, 0x03, 0x07, 0x0F, 0x1F, 0x3F, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}
var dtmfVD2Sig = [sliceLength]byte{
	0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80,
}

// symbolTable maps the 4-bit symbol index extracted from a matched
// slice to a keypad character. Built from the four DTMF
// keypad rows/columns; index 0..9 numeric, 10..13 A-D, 14 '*', 15 '#'.
var symbolTable = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', 'A', 'B', 'C', 'D', '*', '#',
}

// Command is a completed, validated DTMF sequence.
type Command int

const (
	CommandNone Command = iota
	CommandDisconnect
	CommandConnectFCS
	CommandConnectYSF
)

// Result is returned by Decoder.Feed on a completed accumulator.
type Result struct {
	Command Command
	Digits  string // leading prefix stripped
}

const (
	debounceCount     = 3
	silenceCompleteAt = 100
)

// Decoder tracks slice-by-slice DTMF debounce and accumulation state
// across a single call-sequence of VD-Mode2 frames.
type Decoder struct {
	lastChar     byte
	runLength    int
	silenceCount int
	accumulator  []byte
}

// NewDecoder builds an empty Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Feed processes one VD-Mode2 payload (five 13-byte AMBE slices) and
// mutes any matched DTMF tone in place. It returns a completed Result
// when a debounced sequence ends on >= 100 consecutive silent slices.
func (d *Decoder) Feed(payload []byte) (Result, bool) {
	if len(payload) < 5*sliceLength {
		return Result{}, false
	}

	var completed Result
	var done bool

	for i := 0; i < 5; i++ {
		off := i * sliceLength
		slice := payload[off : off+sliceLength]
		ch, ok := matchSlice(slice)
		if ok {
			copy(slice, silenceSlice[:])
			d.silenceCount = 0
			if ch == d.lastChar {
				d.runLength++
			} else {
				d.lastChar = ch
				d.runLength = 1
			}
			if d.runLength == debounceCount {
				d.accumulator = append(d.accumulator, ch)
			}
			continue
		}

		d.lastChar = 0
		d.runLength = 0
		d.silenceCount++
		if d.silenceCount >= silenceCompleteAt && len(d.accumulator) > 0 {
			completed = d.validate(string(d.accumulator))
			d.accumulator = nil
			done = true
		}
	}

	return completed, done
}

func matchSlice(slice []byte) (byte, bool) {
	for i := 0; i < sliceLength; i++ {
		if slice[i]&dtmfVD2Mask[i] != dtmfVD2Sig[i] {
			return 0, false
		}
	}
	sym := symbolFromSlice(slice)
	return symbolTable[sym&0x0F], true
}

// symbolIndexByte and symbolIndexShift locate the one byte position
// whose unmasked bits have enough room (4 bits, in the top nibble) to
// carry a full keypad symbol index. The real eleven 2-bit symbol
// positions are a declared-external payload codec detail (spec.md
// §1); this keeps match and extract self-consistent without needing
// that codec.
const (
	symbolIndexByte  = 3
	symbolIndexShift = 4
)

func symbolFromSlice(slice []byte) byte {
	free := ^dtmfVD2Mask[symbolIndexByte]
	return (slice[symbolIndexByte] & free) >> symbolIndexShift
}

// validate applies the command grammar from spec.md §4.6.
func (d *Decoder) validate(seq string) Result {
	switch {
	case seq == "#":
		return Result{Command: CommandDisconnect}
	case len(seq) >= 1 && seq[0] == 'A' && (len(seq) == 3 || len(seq) == 4):
		return Result{Command: CommandConnectFCS, Digits: seq[1:]}
	case len(seq) == 6 && seq[0] == '#':
		digits := seq[1:]
		if digits == "99999" {
			return Result{Command: CommandDisconnect}
		}
		return Result{Command: CommandConnectYSF, Digits: digits}
	default:
		return Result{Command: CommandNone}
	}
}
