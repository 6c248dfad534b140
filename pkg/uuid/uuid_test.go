package uuid

import (
	"strings"
	"testing"
	"time"
)

func TestNewV7_VersionAndVariantBits(t *testing.T) {
	t.Parallel()

	u := NewV7()
	if u[6]>>4 != 0x7 {
		t.Errorf("version nibble = %x, want 7", u[6]>>4)
	}
	if u[7]>>6 != 0x2 {
		t.Errorf("variant bits = %b, want 10", u[7]>>6)
	}
}

func TestNewV7_StringFormat(t *testing.T) {
	t.Parallel()

	s := NewV7().String()
	if len(s) != 36 {
		t.Fatalf("string length = %d, want 36", len(s))
	}
	if strings.Count(s, "-") != 4 {
		t.Errorf("expected 4 dashes in %q", s)
	}
}

func TestNewV7_MonotonicAcrossMilliseconds(t *testing.T) {
	t.Parallel()

	a := NewV7().String()
	time.Sleep(2 * time.Millisecond)
	b := NewV7().String()
	if !(a < b) {
		t.Errorf("expected %q < %q (timestamp prefix ordering)", a, b)
	}
}

func TestNewV7_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := NewV7().String()
		if seen[s] {
			t.Fatalf("duplicate UUID generated: %s", s)
		}
		seen[s] = true
	}
}
