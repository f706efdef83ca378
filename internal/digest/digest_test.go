package digest

import "testing"

func TestSumAndHex(t *testing.T) {
	d := Sum([]byte("password"))
	got := d.Hex()
	want := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got != want {
		t.Fatalf("Hex() = %q, want %q", got, want)
	}
}

func TestParseHexRoundTrip(t *testing.T) {
	d := Sum([]byte("hello"))
	parsed, err := ParseHex(d.Hex())
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if !parsed.Equal(d) {
		t.Fatalf("round trip mismatch: got %v want %v", parsed, d)
	}
}

func TestParseHexWrongLength(t *testing.T) {
	if _, err := ParseHex("abcd"); err == nil {
		t.Fatal("expected error for short hex string")
	}
}

func TestFromBytesWrongLength(t *testing.T) {
	if _, err := FromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for wrong byte length")
	}
}
