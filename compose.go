package partly

import (
	"fmt"
	"strings"
)

// Encode serializes the multipart to wire text.
//
// Each part contributes its Content-* fields (non-empty values only, in the
// order they were set), a blank line and its payload or recursively encoded
// nested multipart. Parts are separated by encapsulation delimiters, with the
// opening delimiter after the optional preamble and the closing "--boundary--"
// before the optional epilogue, per the RFC 2046 §5.1.1 grammar.
//
// Encode never fails and never mutates the tree: for a part with a nested
// multipart body the Content-Type value written to the wire is computed here
// as "multipart/<subtype>; boundary=...", overriding whatever the field holds.
// Payloads are written verbatim; it is the caller's obligation that no payload
// contains the enclosing boundary.
func (m *Multipart) Encode() string {
	var b strings.Builder
	if m.Preamble != "" {
		b.WriteString(m.Preamble)
		b.WriteString("\r\n")
	}
	b.WriteString("--")
	b.WriteString(m.Boundary)
	b.WriteString("\r\n")
	for i := range m.Parts {
		if i > 0 {
			b.WriteString("\r\n--")
			b.WriteString(m.Boundary)
			b.WriteString("\r\n")
		}
		encodePart(&b, &m.Parts[i])
	}
	b.WriteString("\r\n--")
	b.WriteString(m.Boundary)
	b.WriteString("--")
	if m.Epilogue != "" {
		b.WriteString("\r\n")
		b.WriteString(m.Epilogue)
	}
	return b.String()
}

func encodePart(b *strings.Builder, p *BodyPart) {
	// For a nested multipart, the Content-Type on the wire must name the nested
	// boundary. We keep the field's position if it was set, and add it at the
	// end of the headers otherwise.
	var nestedCT string
	if p.Nested != nil {
		subtype := p.Nested.Subtype
		if subtype == "" {
			subtype = "mixed"
		}
		nestedCT = fmt.Sprintf(`multipart/%s; boundary="%s"`, subtype, p.Nested.Boundary)
	}

	sawCT := false
	for _, f := range p.Fields {
		v := f.Value
		if f.Name == "Content-Type" && nestedCT != "" {
			v = nestedCT
			sawCT = true
		}
		if !strings.HasPrefix(f.Name, "Content-") || v == "" {
			continue
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	if nestedCT != "" && !sawCT {
		b.WriteString("Content-Type: ")
		b.WriteString(nestedCT)
		b.WriteString("\r\n")
	}

	switch {
	case p.Nested != nil:
		b.WriteString("\r\n")
		b.WriteString(p.Nested.Encode())
	case p.HasPayload:
		b.WriteString("\r\n")
		b.WriteString(p.Payload)
	}
}
