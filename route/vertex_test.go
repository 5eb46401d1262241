package route

import "testing"

func TestVertexFromBytesRoundTrip(t *testing.T) {
	var pub [33]byte
	pub[0] = 0x02
	pub[32] = 0xaa

	v, err := NewVertexFromBytes(pub[:])
	if err != nil {
		t.Fatalf("unable to build vertex: %v", err)
	}

	s := v.String()
	parsed, err := NewVertexFromStr(s)
	if err != nil {
		t.Fatalf("unable to parse vertex string %q: %v", s, err)
	}
	if parsed != v {
		t.Fatalf("round trip mismatch: got %v, want %v", parsed, v)
	}
}

func TestVertexFromBytesWrongLength(t *testing.T) {
	if _, err := NewVertexFromBytes([]byte{0x02, 0x03}); err == nil {
		t.Fatalf("expected error for short pubkey byte slice")
	}
}
