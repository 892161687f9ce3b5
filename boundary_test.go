package partly

import (
	"strings"
	"testing"
)

func TestGenerateBoundary(t *testing.T) {
	for i := 0; i < 10000; i++ {
		b := GenerateBoundary()
		if err := CheckBoundary(b); err != nil {
			t.Fatalf("generated boundary %q: %v", b, err)
		}
		if len(b) < 1 || len(b) > MaxBoundaryLength {
			t.Fatalf("generated boundary %q has length %d", b, len(b))
		}
		if b[len(b)-1] == ' ' {
			t.Fatalf("generated boundary %q ends in space", b)
		}
	}
}

func TestCheckBoundary(t *testing.T) {
	valid := []string{
		"B",
		"simple boundary",
		"gc0pJq0M:08jU534c0p",
		"'()+_,-./:=?",
		strings.Repeat("x", MaxBoundaryLength),
	}
	for _, b := range valid {
		tcheck(t, CheckBoundary(b), "valid boundary "+b)
	}

	invalid := []string{
		"",
		strings.Repeat("x", MaxBoundaryLength+1),
		"ends in space ",
		"with\"quote",
		"with\r\ncrlf",
		"with;semicolon",
	}
	for _, b := range invalid {
		tfail(t, CheckBoundary(b), ErrBadBoundary)
	}
}

func TestSetBoundary(t *testing.T) {
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	tcompare(t, m.Boundary, "B")
	tfail(t, m.SetBoundary("bad "), ErrBadBoundary)
	tcompare(t, m.Boundary, "B")
}
