package partly

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Boundary characters allowed by RFC 2046 bchars, space last so the
// final-character draw can simply exclude it.
const boundaryChars = "0123456789" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"'()+_,-./:=? "

// MaxBoundaryLength is the maximum number of characters in a boundary, per
// RFC 2046 §5.1.1.
const MaxBoundaryLength = 70

// ErrBadBoundary is returned for boundaries that violate the grammar: empty,
// too long, characters outside the allowed alphabet, or ending in a space.
var ErrBadBoundary = errors.New("bad boundary")

// GenerateBoundary returns a random boundary of 1 to 70 characters from the
// RFC 2046 bchars alphabet, never ending in a space. Uniqueness against
// arbitrary content is probabilistic, not guaranteed; callers embedding
// hostile payloads must choose their own sufficiently long boundary.
func GenerateBoundary() string {
	n := 1 + randInt(MaxBoundaryLength)
	buf := make([]byte, n)
	for i := 0; i < n-1; i++ {
		buf[i] = boundaryChars[randInt(len(boundaryChars))]
	}
	// Last character must not be a space.
	buf[n-1] = boundaryChars[randInt(len(boundaryChars)-1)]
	return string(buf)
}

// randInt returns a cryptographically random int in [0, n). Random bytes are
// drawn one at a time with rejection to avoid modulo bias.
func randInt(n int) int {
	b := make([]byte, 1)
	limit := 256 - 256%n
	for {
		if _, err := cryptorand.Read(b); err != nil {
			panic(fmt.Errorf("reading random bytes: %v", err))
		}
		if int(b[0]) < limit {
			return int(b[0]) % n
		}
	}
}

// CheckBoundary verifies a boundary against the grammar, returning an error
// wrapping ErrBadBoundary when it is invalid.
func CheckBoundary(boundary string) error {
	if boundary == "" {
		return fmt.Errorf("%w: empty", ErrBadBoundary)
	}
	if len(boundary) > MaxBoundaryLength {
		return fmt.Errorf("%w: length %d > %d", ErrBadBoundary, len(boundary), MaxBoundaryLength)
	}
	for _, c := range boundary {
		if !strings.ContainsRune(boundaryChars, c) {
			return fmt.Errorf("%w: character %q not allowed", ErrBadBoundary, c)
		}
	}
	if boundary[len(boundary)-1] == ' ' {
		return fmt.Errorf("%w: ends in space", ErrBadBoundary)
	}
	return nil
}
