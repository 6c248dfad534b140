package version

import (
	"strings"
	"testing"
)

func TestString_ContainsNameAndVersion(t *testing.T) {
	t.Parallel()

	s := String()
	if !strings.Contains(s, "sous version") {
		t.Errorf("version string %q missing binary name", s)
	}
	if !strings.Contains(s, Version) {
		t.Errorf("version string %q missing version %q", s, Version)
	}
}
