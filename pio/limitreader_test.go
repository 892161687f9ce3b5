package pio

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLimitReader(t *testing.T) {
	buf, err := io.ReadAll(&LimitReader{R: strings.NewReader("12345"), Limit: 5})
	if err != nil {
		t.Fatalf("read below limit: %s", err)
	}
	if string(buf) != "12345" {
		t.Fatalf("got %q, expected %q", buf, "12345")
	}

	_, err = io.ReadAll(&LimitReader{R: strings.NewReader("12345"), Limit: 4})
	if !errors.Is(err, ErrLimit) {
		t.Fatalf("got err %v, expected ErrLimit", err)
	}
}
