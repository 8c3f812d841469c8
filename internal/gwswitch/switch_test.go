package gwswitch

import (
	"testing"

	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/link"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/wiresx"
	"github.com/dbehnke/ysf-gateway/internal/ysf"
)

type fakeLink struct {
	state      link.State
	linkCalls  int
	unlinkCalls int
	writes     []*ysf.Frame
	failOpen   bool
}

func (f *fakeLink) Open() error {
	if f.failOpen {
		return errFakeOpen
	}
	f.state = link.StateNotLinked
	return nil
}
func (f *fakeLink) Link()   { f.linkCalls++; f.state = link.StateLinked }
func (f *fakeLink) Unlink() { f.unlinkCalls++; f.state = link.StateNotLinked }
func (f *fakeLink) Close() error { f.state = link.StateNotOpen; return nil }
func (f *fakeLink) Write(frame *ysf.Frame) error { f.writes = append(f.writes, frame); return nil }
func (f *fakeLink) Read() (*ysf.Frame, bool)     { return nil, false }
func (f *fakeLink) Clock(ms int)                 {}
func (f *fakeLink) Status() link.State           { return f.state }

var errFakeOpen = &fakeOpenErr{}

type fakeOpenErr struct{}

func (*fakeOpenErr) Error() string { return "fake open failure" }

func newTestSwitch(t *testing.T) (*Switch, *fakeLink) {
	t.Helper()
	reg := hostlist.NewRegistry()
	log := logging.Default()
	eng := wiresx.NewEngine("N0CALL", "ND", reg)
	sw := NewSwitch(eng, reg, func(*ysf.Frame) {}, log)

	lk := &fakeLink{}
	entry := &DGIDEntry{
		DGId:          1,
		Kind:          KindYSF,
		Static:        false,
		RFHangTimeMS:  5000,
		NetHangTimeMS: 5000,
		AllowedModes:  ysf.DTVD1 | ysf.DTVD2 | ysf.DTVoiceFR | ysf.DTDataFR,
		NetDGId:       1,
		Link:          lk,
	}
	if err := sw.AddEntry(entry); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	return sw, lk
}

func frameWithDGID(dgid uint8, dt uint8) *ysf.Frame {
	f := ysf.NewDataFrame()
	fich := ysf.FICH{FI: ysf.FICommunications, DT: dt, DGID: dgid}
	f.SetFICH(fich)
	return f
}

func TestProcessRFFrameSelectsDGIDAndThreeShotsLink(t *testing.T) {
	sw, lk := newTestSwitch(t)
	f := frameWithDGID(1, ysf.DTVD2)
	sw.ProcessRFFrame(f)

	if sw.currentDGId != 1 {
		t.Fatalf("currentDGId = %d, want 1", sw.currentDGId)
	}
	if sw.source != SourceRF {
		t.Fatalf("source = %v, want SourceRF", sw.source)
	}
	if lk.linkCalls != 3 {
		t.Fatalf("linkCalls = %d, want 3", lk.linkCalls)
	}
	if len(lk.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(lk.writes))
	}
}

func TestCrossTalkLocksToFirstDGID(t *testing.T) {
	sw, lk := newTestSwitch(t)
	sw.ProcessRFFrame(frameWithDGID(1, ysf.DTVD2))
	lk.writes = nil

	// while dgid 1 is selected, an RF frame carrying another dgid does
	// not switch currentDGId; it is handed to the selected slot.
	sw.ProcessRFFrame(frameWithDGID(2, ysf.DTVD2))
	if sw.currentDGId != 1 {
		t.Fatalf("currentDGId changed to %d, want still 1", sw.currentDGId)
	}

	sw.ProcessRFFrame(frameWithDGID(1, ysf.DTVD2))
	if len(lk.writes) != 2 {
		t.Fatalf("writes = %d, want 2 (both frames forwarded to the selected slot)", len(lk.writes))
	}
}

func TestInactivityRevertsAndThreeShotsUnlink(t *testing.T) {
	sw, lk := newTestSwitch(t)
	sw.ProcessRFFrame(frameWithDGID(1, ysf.DTVD2))

	sw.Tick(4999)
	if sw.currentDGId != 1 {
		t.Fatalf("currentDGId reverted too early")
	}
	sw.Tick(2)
	if sw.currentDGId != ysf.UnsetDGID {
		t.Fatalf("currentDGId = %d, want unset after hang timeout", sw.currentDGId)
	}
	if lk.unlinkCalls != 3 {
		t.Fatalf("unlinkCalls = %d, want 3", lk.unlinkCalls)
	}
	if sw.source != SourceNone {
		t.Fatalf("source = %v, want SourceNone", sw.source)
	}
}

func TestBleepArmedOnRFEndOfTransmission(t *testing.T) {
	sw, _ := newTestSwitch(t)
	var gotCount int
	sw.SetBleepNotifier(func(count int) { gotCount = count })

	f := frameWithDGID(1, ysf.DTVD2)
	f.SetEOT(true)
	sw.ProcessRFFrame(f)

	if gotCount != 1 {
		t.Fatalf("bleep count = %d, want 1 (no net state change yet)", gotCount)
	}
}

func TestProcessNetFrameRejectsWrongSlot(t *testing.T) {
	sw, lk := newTestSwitch(t)
	sw.ProcessRFFrame(frameWithDGID(1, ysf.DTVD2))
	lk.writes = nil

	sw.ProcessNetFrame(2, frameWithDGID(1, ysf.DTVD2))
	if sw.currentDGId != 1 {
		t.Fatalf("currentDGId changed from foreign-slot net frame")
	}
}

func TestUnconfiguredEntryNeverSelected(t *testing.T) {
	sw, _ := newTestSwitch(t)
	sw.ProcessRFFrame(frameWithDGID(9, ysf.DTVD2))
	if sw.currentDGId != ysf.UnsetDGID {
		t.Fatalf("currentDGId = %d, want unset for unconfigured dgid", sw.currentDGId)
	}
}

func TestForceLinkAndStatus(t *testing.T) {
	sw, lk := newTestSwitch(t)

	if dgid, linked := sw.Status(); linked {
		t.Fatalf("Status() = %d,%v before ForceLink", dgid, linked)
	}

	if err := sw.ForceLink(1); err != nil {
		t.Fatalf("ForceLink: %v", err)
	}
	if dgid, linked := sw.Status(); !linked || dgid != 1 {
		t.Fatalf("Status() = %d,%v after ForceLink", dgid, linked)
	}
	if lk.linkCalls != 3 {
		t.Fatalf("linkCalls = %d, want 3", lk.linkCalls)
	}
}

func TestForceLinkRejectsWhenAlreadyActive(t *testing.T) {
	sw, _ := newTestSwitch(t)
	sw.ProcessRFFrame(frameWithDGID(1, ysf.DTVD2))

	if err := sw.ForceLink(1); err == nil {
		t.Fatal("expected error when a slot is already active")
	}
}

func TestForceUnlink(t *testing.T) {
	sw, lk := newTestSwitch(t)
	if err := sw.ForceLink(1); err != nil {
		t.Fatalf("ForceLink: %v", err)
	}

	sw.ForceUnlink()

	if dgid, linked := sw.Status(); linked {
		t.Fatalf("Status() = %d,%v after ForceUnlink", dgid, linked)
	}
	if lk.unlinkCalls != 3 {
		t.Fatalf("unlinkCalls = %d, want 3", lk.unlinkCalls)
	}
}
