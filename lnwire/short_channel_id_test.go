package lnwire

import "testing"

func TestShortChannelIDPackingRoundTrip(t *testing.T) {
	tests := []ShortChannelID{
		{BlockHeight: 0, TxIndex: 0, TxPosition: 0},
		{BlockHeight: 1, TxIndex: 0, TxPosition: 0},
		{BlockHeight: 500000, TxIndex: 123, TxPosition: 4},
		{BlockHeight: 0xFFFFFF, TxIndex: 0xFFFFFF, TxPosition: 0xFFFF},
	}

	for _, scid := range tests {
		packed := scid.ToUint64()
		unpacked := NewShortChanIDFromInt(packed)

		if unpacked != scid {
			t.Fatalf("round trip mismatch: got %+v, want %+v", unpacked, scid)
		}
	}
}

func TestShortChannelIDOrdering(t *testing.T) {
	lower := ShortChannelID{BlockHeight: 100, TxIndex: 1, TxPosition: 0}
	higher := ShortChannelID{BlockHeight: 100, TxIndex: 2, TxPosition: 0}

	if !lower.Less(higher) {
		t.Fatalf("expected %v to sort before %v", lower, higher)
	}
	if higher.Less(lower) {
		t.Fatalf("expected %v to not sort before %v", higher, lower)
	}
}

func TestShortChannelIDStringRoundTrip(t *testing.T) {
	scid := ShortChannelID{BlockHeight: 500000, TxIndex: 123, TxPosition: 4}

	s := scid.String()
	if s != "500000x123x4" {
		t.Fatalf("unexpected string form: %v", s)
	}

	parsed, err := NewShortChanIDFromString(s)
	if err != nil {
		t.Fatalf("unable to parse %v: %v", s, err)
	}
	if parsed != scid {
		t.Fatalf("parse mismatch: got %+v, want %+v", parsed, scid)
	}
}

func TestShortChannelIDStringMalformed(t *testing.T) {
	if _, err := NewShortChanIDFromString("not-a-scid"); err == nil {
		t.Fatalf("expected error parsing malformed short channel id")
	}
	if _, err := NewShortChanIDFromString("1x2"); err == nil {
		t.Fatalf("expected error parsing short channel id missing a field")
	}
}

func TestShortChannelIDIsPeerID(t *testing.T) {
	real := NewShortChanIDFromInt(500000 << 40)
	if real.IsPeerID() {
		t.Fatalf("expected real short channel id to not be a peer id marker")
	}

	synthetic := ShortChannelID{BlockHeight: peerIDMarker << 16}
	if !synthetic.IsPeerID() {
		t.Fatalf("expected synthetic short channel id to be a peer id marker")
	}
}
