// Package partly encodes and decodes RFC 2045/2046 multipart bodies: trees of
// body parts with Content-* header fields, delimited by boundary tokens.
//
// The package deals with the boundary-delimited wire grammar only. It does not
// interpret non-Content- header fields, decode character sets, or apply
// content-transfer-encodings; callers combine it with whatever mail/HTTP stack
// produces or consumes the encoded text.
package partly

import (
	"strings"
)

// HeaderField is a single header field of a body part. Values are stored
// unfolded, folding is applied/removed at the wire level only.
type HeaderField struct {
	Name  string
	Value string
}

// BodyPart is one part of a multipart body: header fields plus an optional
// body, either an opaque payload or a nested multipart.
//
// Fields preserves the order in which fields were set (or encountered while
// decoding). Only fields whose name starts with "Content-" (case-sensitive)
// are serialized; other fields are kept but otherwise ignored.
type BodyPart struct {
	Fields []HeaderField

	// At most one of the body variants is set. HasPayload distinguishes an
	// empty payload from no body at all.
	Payload    string
	HasPayload bool
	Nested     *Multipart
}

// Multipart is an ordered sequence of body parts with a boundary, and optional
// preamble/epilogue free text.
type Multipart struct {
	Subtype  string // E.g. "mixed", "alternative", "form-data".
	Boundary string
	Preamble string
	Epilogue string
	Parts    []BodyPart
}

// New returns a multipart with the given subtype and a freshly generated
// boundary.
func New(subtype string) *Multipart {
	return &Multipart{Subtype: subtype, Boundary: GenerateBoundary()}
}

// SetSubtype changes the multipart subtype, e.g. "mixed".
func (m *Multipart) SetSubtype(subtype string) {
	m.Subtype = subtype
}

// SetBoundary replaces the boundary after validating it, returning
// ErrBadBoundary if it does not satisfy the boundary grammar.
func (m *Multipart) SetBoundary(boundary string) error {
	if err := CheckBoundary(boundary); err != nil {
		return err
	}
	m.Boundary = boundary
	return nil
}

// SetPreamble sets the free text emitted before the first boundary delimiter.
// CRLF runs are collapsed to a single space: raw line breaks in the preamble
// would masquerade as delimiter structure.
func (m *Multipart) SetPreamble(text string) {
	m.Preamble = collapseCRLF(text)
}

// SetEpilogue sets the free text emitted after the closing delimiter, with
// CRLF runs collapsed like SetPreamble.
func (m *Multipart) SetEpilogue(text string) {
	m.Epilogue = collapseCRLF(text)
}

// AddBodyPart appends a part.
func (m *Multipart) AddBodyPart(p BodyPart) {
	m.Parts = append(m.Parts, p)
}

// collapseCRLF replaces each run of CRLFs with a single space.
func collapseCRLF(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "\r\n") {
			b.WriteByte(' ')
			for strings.HasPrefix(s[i:], "\r\n") {
				i += 2
			}
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// Header returns the value of the first field with the given name, and whether
// it was present. Name comparison is exact.
func (p *BodyPart) Header(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// SetHeader sets a field, replacing the value of an existing field with the
// same name (keeping its position), or appending a new field.
func (p *BodyPart) SetHeader(name, value string) {
	for i, f := range p.Fields {
		if f.Name == name {
			p.Fields[i].Value = value
			return
		}
	}
	p.Fields = append(p.Fields, HeaderField{name, value})
}

// SetType sets the Content-Type field.
func (p *BodyPart) SetType(value string) {
	p.SetHeader("Content-Type", value)
}

// SetID sets the Content-ID field.
func (p *BodyPart) SetID(value string) {
	p.SetHeader("Content-ID", value)
}

// SetDescription sets the Content-Description field.
func (p *BodyPart) SetDescription(value string) {
	p.SetHeader("Content-Description", value)
}

// SetTransferEncoding sets the Content-Transfer-Encoding field. The payload is
// not transformed, callers apply encodings themselves.
func (p *BodyPart) SetTransferEncoding(value string) {
	p.SetHeader("Content-Transfer-Encoding", value)
}

// SetDisposition sets the Content-Disposition field.
func (p *BodyPart) SetDisposition(value string) {
	p.SetHeader("Content-Disposition", value)
}

// SetPayload sets an opaque text/binary body, clearing any nested multipart.
func (p *BodyPart) SetPayload(text string) {
	p.Payload = text
	p.HasPayload = true
	p.Nested = nil
}

// SetMultipart sets a nested multipart body, clearing any payload. The
// Content-Type field does not need to be prepared by the caller: the encoder
// writes "multipart/<subtype>; boundary=..." for the nested multipart when
// serializing.
func (p *BodyPart) SetMultipart(m *Multipart) {
	p.Nested = m
	p.Payload = ""
	p.HasPayload = false
}
