package partly

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ttahmouch/partly/metrics"
	"github.com/ttahmouch/partly/mlog"
	"github.com/ttahmouch/partly/pio"
)

var (
	// ErrTruncated is returned when input ends before the closing boundary
	// delimiter. The complete parts parsed up to that point are still returned.
	ErrTruncated = errors.New("truncated input: eof without closing boundary")

	// ErrBadField is returned in strict mode for a header field with a
	// forbidden character in its name. Permissive decoding skips such lines.
	ErrBadField = errors.New("bad header field")

	// ErrNestingTooDeep is returned when nested multiparts exceed the depth
	// limit. Fatal for the decode call.
	ErrNestingTooDeep = errors.New("multipart nesting too deep")
)

// Input is externally supplied, don't recurse without bound on it.
const maxNesting = 100

// Decoder states. One forward scan; transitions are explicit, no jumping out
// of nested loops.
type parseState int

const (
	stateScanBoundary parseState = iota // Advancing to the next "--boundary".
	stateHeader                         // Reading header fields of a new part.
	stateBody                           // Accumulating a part body up to the next delimiter.
	stateDone
)

// Decode parses wire text against the given boundary, returning the body
// parts in encounter order. The boundary is not self-describing and must be
// supplied by the caller, typically from the Content-Type field of an
// enclosing part.
//
// Parts whose Content-Type carries a boundary parameter are decoded
// recursively, with the nested parts stored as a nested Multipart.
//
// Empty input, or input without the boundary, yields no parts and no error.
// Input that ends before a closing delimiter yields the complete parts parsed
// so far plus ErrTruncated. If strict is set, a malformed header field aborts
// with ErrBadField instead of being skipped.
func Decode(elog *slog.Logger, strict bool, text, boundary string) ([]BodyPart, error) {
	log := mlog.New("partly", elog)
	parts, err := decode(log, strict, text, boundary, 0)
	switch {
	case err == nil:
		metrics.DecodeInc("ok")
	case errors.Is(err, ErrTruncated):
		metrics.DecodeInc("truncated")
	case errors.Is(err, ErrNestingTooDeep):
		metrics.DecodeInc("toodeep")
	default:
		metrics.DecodeInc("badfield")
	}
	return parts, err
}

// DecodeFrom reads all of r, bounded to maxSize bytes, and decodes it like
// Decode. If the input exceeds maxSize, the error wraps pio.ErrLimit.
func DecodeFrom(elog *slog.Logger, strict bool, r io.Reader, boundary string, maxSize int64) ([]BodyPart, error) {
	buf, err := io.ReadAll(&pio.LimitReader{R: r, Limit: maxSize})
	if err != nil {
		return nil, fmt.Errorf("reading multipart input: %w", err)
	}
	return Decode(elog, strict, string(buf), boundary)
}

type parser struct {
	log    mlog.Log
	strict bool
	src    string
	pos    int
	bound  string // "--" + boundary.
	delim  string // "\r\n" + bound, ends a part body.
	depth  int

	parts     []BodyPart
	cur       BodyPart
	curCT     string // Content-Type value of cur, for the nested subtype.
	nested    string // Boundary captured from cur's Content-Type, if any.
	truncated bool
}

func decode(log mlog.Log, strict bool, text, boundary string, depth int) ([]BodyPart, error) {
	if depth >= maxNesting {
		return nil, fmt.Errorf("%w: depth %d", ErrNestingTooDeep, depth)
	}
	p := &parser{
		log:    log,
		strict: strict,
		src:    text,
		bound:  "--" + boundary,
		delim:  "\r\n--" + boundary,
		depth:  depth,
	}
	return p.parse()
}

func (p *parser) parse() ([]BodyPart, error) {
	state := stateScanBoundary
	for state != stateDone {
		switch state {
		case stateScanBoundary:
			state = p.scanBoundary()
		case stateHeader:
			var err error
			state, err = p.header()
			if err != nil {
				return p.parts, err
			}
		case stateBody:
			var err error
			state, err = p.body()
			if err != nil {
				return p.parts, err
			}
		}
	}
	if p.truncated {
		return p.parts, ErrTruncated
	}
	return p.parts, nil
}

// matchBound reports whether a full boundary delimiter starts at offset i,
// and whether it is the closing delimiter. The boundary must match
// byte-for-byte including length: a candidate followed by more text that
// could extend it (e.g. boundary "b1" inside "--b10") is not a match, so a
// boundary never matches inside a part's own nested boundary. After the
// boundary only "--", transport padding, a CRLF or end of input may follow.
func (p *parser) matchBound(i int) (match, finish bool) {
	rest := p.src[i:]
	if !strings.HasPrefix(rest, p.bound) {
		return false, false
	}
	rest = rest[len(p.bound):]
	if strings.HasPrefix(rest, "--") {
		return true, true
	}
	if rest == "" {
		return true, false
	}
	switch rest[0] {
	case ' ', '\t', '\r':
		return true, false
	}
	return false, false
}

// scanBoundary advances to the next "--boundary" delimiter. A "--" run that
// does not complete a full boundary match is ordinary text.
func (p *parser) scanBoundary() parseState {
	for {
		i := strings.Index(p.src[p.pos:], p.bound)
		if i < 0 {
			// No boundary at all: empty result, not an error. Reached only
			// before the first part, later scans start on a delimiter.
			return stateDone
		}
		abs := p.pos + i
		match, finish := p.matchBound(abs)
		if !match {
			p.pos = abs + 1
			continue
		}
		p.pos = abs + len(p.bound)
		if finish {
			// Closing delimiter. Anything after it is epilogue, discarded.
			return stateDone
		}
		break
	}

	// Tolerate transport padding, and consume the line's CRLF if present.
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if strings.HasPrefix(p.src[p.pos:], "\r\n") {
		p.pos += 2
	}
	p.cur = BodyPart{}
	p.curCT = ""
	p.nested = ""
	return stateHeader
}

// header reads one step of the header section: a blank line starting the
// body, a boundary meaning the part has no body, or a single field.
func (p *parser) header() (parseState, error) {
	if p.pos >= len(p.src) {
		// Headers cannot be the end of valid input, a closing delimiter is
		// required. Don't fabricate a part from the remains.
		p.truncated = true
		return stateDone, nil
	}
	if strings.HasPrefix(p.src[p.pos:], "\r\n") {
		if match, _ := p.matchBound(p.pos + 2); match {
			// The CRLF belongs to the delimiter, not to a blank line starting
			// an empty body: part without body.
			p.parts = append(p.parts, p.cur)
			p.pos += 2
			return stateScanBoundary, nil
		}
		p.pos += 2
		return stateBody, nil
	}
	if match, _ := p.matchBound(p.pos); match {
		// Boundary without preceding blank line: part without body.
		p.parts = append(p.parts, p.cur)
		return stateScanBoundary, nil
	}
	if err := p.field(); err != nil {
		return stateDone, err
	}
	return stateHeader, nil
}

// field reads one "name: value" header field including its terminating CRLF,
// unfolding the value and committing it to the current part.
func (p *parser) field() error {
	// Field name: printable ascii, no colon, per RFC 822 §3.2.
	i := p.pos
	for {
		if i >= len(p.src) {
			p.truncated = true
			p.pos = len(p.src)
			return nil
		}
		c := p.src[i]
		if c == ':' {
			break
		}
		if c < '!' || c > '~' {
			return p.badField(fmt.Errorf("%w: %q in field name", ErrBadField, c))
		}
		i++
	}
	if i == p.pos {
		return p.badField(fmt.Errorf("%w: empty field name", ErrBadField))
	}
	name := p.src[p.pos:i]
	i++

	// Optional WSP between the colon and the field body.
	for i < len(p.src) && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}

	// Field body, up to the first CRLF not followed by WSP. A folded CRLF is
	// dropped, its WSP continuation characters are kept. A ";" may introduce a
	// boundary parameter; the lookahead consumes nothing when it doesn't.
	var value strings.Builder
	capture := strings.EqualFold(name, "Content-Type")
	for {
		if i >= len(p.src) {
			p.truncated = true
			p.pos = len(p.src)
			return nil
		}
		if strings.HasPrefix(p.src[i:], "\r\n") {
			if i+2 < len(p.src) && (p.src[i+2] == ' ' || p.src[i+2] == '\t') {
				i += 2
				continue
			}
			i += 2
			break
		}
		if p.src[i] == ';' && capture {
			if nb, ok := p.scanBoundaryParam(i + 1); ok && nb != "" {
				p.nested = nb
			}
		}
		value.WriteByte(p.src[i])
		i++
	}
	p.pos = i
	p.cur.Fields = append(p.cur.Fields, HeaderField{name, value.String()})
	if capture {
		p.curCT = value.String()
	}
	return nil
}

// badField aborts in strict mode. Otherwise the rest of the line is skipped
// and parsing resynchronizes after its CRLF, the permissive posture of
// decoders that must ignore what they don't understand.
func (p *parser) badField(err error) error {
	if p.strict {
		return err
	}
	metrics.DecodeFieldSkipInc()
	i := strings.Index(p.src[p.pos:], "\r\n")
	if i < 0 {
		p.log.Debugx("skipping malformed header field at end of input", err)
		p.truncated = true
		p.pos = len(p.src)
		return nil
	}
	p.log.Debugx("skipping malformed header field, continuing", err, slog.String("line", p.src[p.pos:p.pos+i]))
	p.pos += i + 2
	return nil
}

// scanBoundaryParam looks ahead after a ";" for a boundary=value parameter,
// value either quoted or a bare run of boundary characters. WSP is skipped,
// including a folded CRLF: parameters often continue on the next line.
func (p *parser) scanBoundaryParam(i int) (string, bool) {
	for i < len(p.src) {
		if p.src[i] == ' ' || p.src[i] == '\t' {
			i++
			continue
		}
		if strings.HasPrefix(p.src[i:], "\r\n") && i+2 < len(p.src) && (p.src[i+2] == ' ' || p.src[i+2] == '\t') {
			i += 2
			continue
		}
		break
	}
	const token = "boundary="
	if !strings.HasPrefix(p.src[i:], token) {
		return "", false
	}
	i += len(token)
	if i < len(p.src) && p.src[i] == '"' {
		i++
		j := strings.IndexByte(p.src[i:], '"')
		if j < 0 {
			return "", false
		}
		return p.src[i : i+j], true
	}
	j := i
	for j < len(p.src) && strings.IndexByte(boundaryChars, p.src[j]) >= 0 {
		j++
	}
	if j == i {
		return "", false
	}
	return p.src[i:j], true
}

// body accumulates the raw part body up to the enclosing boundary delimiter
// and completes the current part, recursing when a nested boundary was
// captured from its Content-Type.
func (p *parser) body() (parseState, error) {
	var raw string
	search := p.pos
	for {
		i := strings.Index(p.src[search:], p.delim)
		if i < 0 {
			p.truncated = true
			return stateDone, nil
		}
		abs := search + i
		if match, _ := p.matchBound(abs + 2); match {
			raw = p.src[p.pos:abs]
			// The delimiter's CRLF is not part of the body. Leave the
			// position on the "--" so the boundary scan re-triggers.
			p.pos = abs + 2
			break
		}
		search = abs + 1
	}

	if p.nested == "" {
		p.cur.Payload = raw
		p.cur.HasPayload = true
		p.parts = append(p.parts, p.cur)
		return stateScanBoundary, nil
	}

	nparts, err := decode(p.log, p.strict, raw, p.nested, p.depth+1)
	if err != nil && !errors.Is(err, ErrTruncated) {
		return stateDone, err
	}
	p.cur.Nested = &Multipart{
		Subtype:  nestedSubtype(p.curCT),
		Boundary: p.nested,
		Parts:    nparts,
	}
	p.parts = append(p.parts, p.cur)
	if err != nil {
		// Nested truncation: keep the partial nested parts, flag outward.
		p.truncated = true
	}
	return stateScanBoundary, nil
}

// nestedSubtype returns the subtype of a "multipart/<subtype>" media type,
// ignoring parameters, or "mixed" when the value isn't recognizable.
func nestedSubtype(ct string) string {
	mt := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	const prefix = "multipart/"
	if len(mt) > len(prefix) && strings.EqualFold(mt[:len(prefix)], prefix) {
		return mt[len(prefix):]
	}
	return "mixed"
}
