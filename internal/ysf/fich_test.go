package ysf

import "testing"

func TestFICHRoundTrip(t *testing.T) {
	cases := []FICH{
		{FI: FIHeader, DT: DTVD1, CM: 0, BN: 0, BT: 0, FN: 0, FT: 0, DGID: 0},
		{FI: FICommunications, DT: DTDataFR, CM: 1, BN: 2, BT: 5, FN: 3, FT: 7, DGID: 127},
		{FI: FITerminator, DT: DTVoiceFR, CM: 3, BN: 1, BT: 3, FN: 5, FT: 5, DGID: 64},
	}
	for _, c := range cases {
		var buf [3]byte
		c.Encode(buf[:])
		var got FICH
		got.Decode(buf[:])
		if got != c {
			t.Errorf("round trip %+v -> %+v", c, got)
		}
	}
}

func TestRoutingDGID(t *testing.T) {
	if RoutingDGID(127) != 0 {
		t.Errorf("RoutingDGID(127) = %d, want 0", RoutingDGID(127))
	}
	if RoutingDGID(5) != 5 {
		t.Errorf("RoutingDGID(5) = %d, want 5", RoutingDGID(5))
	}
}
