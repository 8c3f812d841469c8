package dtmf

import "testing"

func buildSlice(sym byte) []byte {
	slice := make([]byte, sliceLength)
	copy(slice, dtmfVD2Sig[:])
	free := ^dtmfVD2Mask[symbolIndexByte]
	slice[symbolIndexByte] = (slice[symbolIndexByte] &^ free) | ((sym << symbolIndexShift) & free)
	return slice
}

func buildFrame(chars string) []byte {
	payload := make([]byte, 5*sliceLength)
	for i := 0; i < 5; i++ {
		var ch byte = ' '
		if i < len(chars) {
			ch = chars[i]
		}
		off := i * sliceLength
		if ch == ' ' {
			// non-matching silent slice
			for j := range payload[off : off+sliceLength] {
				payload[off+j] = 0xFF
			}
			continue
		}
		var sym byte
		for idx, c := range symbolTable {
			if c == ch {
				sym = byte(idx)
				break
			}
		}
		copy(payload[off:off+sliceLength], buildSlice(sym))
	}
	return payload
}

func TestFeedMutesMatchedSlice(t *testing.T) {
	d := NewDecoder()
	payload := buildFrame("1    ")
	before := append([]byte{}, payload[0:sliceLength]...)
	d.Feed(payload)
	if string(before) == string(payload[0:sliceLength]) {
		t.Error("expected matched slice to be overwritten with silence")
	}
}

func TestDebounceAndDisconnect(t *testing.T) {
	d := NewDecoder()
	d.Feed(buildFrame("#####"))
	var res Result
	var done bool
	for i := 0; i < 25; i++ {
		res, done = d.Feed(buildFrame("     "))
		if done {
			break
		}
	}
	if !done {
		t.Fatal("expected completion after sustained silence")
	}
	if res.Command != CommandDisconnect {
		t.Fatalf("command = %v, want CommandDisconnect", res.Command)
	}
}

func TestValidateConnectYSF(t *testing.T) {
	d := NewDecoder()
	got := d.validate("#12345")
	if got.Command != CommandConnectYSF || got.Digits != "12345" {
		t.Fatalf("got %+v", got)
	}
}

func TestValidateConnectYSFAllNinesIsDisconnect(t *testing.T) {
	d := NewDecoder()
	got := d.validate("#99999")
	if got.Command != CommandDisconnect {
		t.Fatalf("got %+v, want CommandDisconnect", got)
	}
}

func TestValidateConnectFCS(t *testing.T) {
	d := NewDecoder()
	if got := d.validate("A12"); got.Command != CommandConnectFCS || got.Digits != "12" {
		t.Fatalf("got %+v", got)
	}
	if got := d.validate("A123"); got.Command != CommandConnectFCS || got.Digits != "123" {
		t.Fatalf("got %+v", got)
	}
}

func TestValidateNone(t *testing.T) {
	d := NewDecoder()
	if got := d.validate("XYZ"); got.Command != CommandNone {
		t.Fatalf("got %+v, want CommandNone", got)
	}
}
