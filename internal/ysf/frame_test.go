package ysf

import "testing"

func TestFrameRoundTrip(t *testing.T) {
	f := NewDataFrame()
	f.SetTag("REFLECTOR ")
	f.SetCaller("N0CALL")
	f.SetDest("ALL")
	f.SetFrameCounter(12)
	f.SetEOT(true)
	f.SetFICH(FICH{FI: FICommunications, DT: DTVD2, CM: 0, FN: 1, FT: 5, DGID: 42})
	copy(f.Payload(), []byte{1, 2, 3, 4})

	parsed, err := ParseFrame(f.Bytes())
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got := parsed.Tag(); got != "REFLECTOR" {
		t.Errorf("Tag() = %q, want %q", got, "REFLECTOR")
	}
	if got := parsed.Caller(); got != "N0CALL" {
		t.Errorf("Caller() = %q", got)
	}
	if got := parsed.Dest(); got != "ALL" {
		t.Errorf("Dest() = %q", got)
	}
	if !parsed.EOT() {
		t.Error("EOT() = false, want true")
	}
	if got := parsed.FrameCounter(); got != 12 {
		t.Errorf("FrameCounter() = %d, want 12", got)
	}
	fich := parsed.FICH()
	if fich.FI != FICommunications || fich.DT != DTVD2 || fich.FN != 1 || fich.FT != 5 || fich.DGID != 42 {
		t.Errorf("FICH = %+v", fich)
	}
}

func TestParseFrameRejectsBadMagic(t *testing.T) {
	data := make([]byte, FrameLength)
	copy(data, "XXXX")
	if _, err := ParseFrame(data); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseFrameRejectsWrongLength(t *testing.T) {
	if _, err := ParseFrame(make([]byte, 10)); err == nil {
		t.Fatal("expected error for wrong length")
	}
}

func TestDestAllSpacesSentinel(t *testing.T) {
	f := NewDataFrame()
	// an empty callsign is padded to ten spaces, the blank sentinel
	f.SetDest("")
	if got := f.Dest(); got != "??????????" {
		t.Errorf("Dest() = %q, want sentinel", got)
	}
}
