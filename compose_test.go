package partly

import (
	"strings"
	"testing"
)

func TestEncodeBasic(t *testing.T) {
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	var p BodyPart
	p.SetType("application/json")
	p.SetPayload("{}")
	m.AddBodyPart(p)

	exp := "--B\r\nContent-Type: application/json\r\n\r\n{}\r\n--B--"
	tcompare(t, m.Encode(), exp)

	// Same tree, same boundary: identical text.
	tcompare(t, m.Encode(), exp)
}

func TestEncodeMultipleParts(t *testing.T) {
	m := New("alternative")
	tcheck(t, m.SetBoundary("bnd"), "set boundary")
	var text, html BodyPart
	text.SetType("text/plain")
	text.SetPayload("hello")
	html.SetType("text/html")
	html.SetPayload("<p>hello</p>")
	m.AddBodyPart(text)
	m.AddBodyPart(html)

	exp := strings.ReplaceAll(`--bnd
Content-Type: text/plain

hello
--bnd
Content-Type: text/html

<p>hello</p>
--bnd--`, "\n", "\r\n")
	tcompare(t, m.Encode(), exp)
}

func TestEncodeFieldSelection(t *testing.T) {
	// Only non-empty Content- fields are emitted. The prefix is
	// case-sensitive; other fields are kept in the model but not serialized.
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	var p BodyPart
	p.SetHeader("X-Custom", "nope")
	p.SetHeader("content-type", "text/plain")
	p.SetDescription("")
	p.SetID("<a@b>")
	p.SetPayload("x")
	m.AddBodyPart(p)

	exp := "--B\r\nContent-ID: <a@b>\r\n\r\nx\r\n--B--"
	tcompare(t, m.Encode(), exp)
}

func TestEncodeHeaderlessPart(t *testing.T) {
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	var p BodyPart
	p.SetPayload("implicit text")
	m.AddBodyPart(p)
	tcompare(t, m.Encode(), "--B\r\n\r\nimplicit text\r\n--B--")
}

func TestEncodeBodylessPart(t *testing.T) {
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	var p BodyPart
	p.SetType("text/plain")
	m.AddBodyPart(p)
	// Headers only, no blank line: the CRLF before the dashes belongs to the
	// closing delimiter.
	tcompare(t, m.Encode(), "--B\r\nContent-Type: text/plain\r\n\r\n--B--")
}

func TestEncodePreambleEpilogue(t *testing.T) {
	m := New("mixed")
	tcheck(t, m.SetBoundary("B"), "set boundary")
	m.SetPreamble("This is the preamble.\r\nIt is to be ignored.")
	m.SetEpilogue("This is the epilogue.")
	var p BodyPart
	p.SetPayload("x")
	m.AddBodyPart(p)

	// CRLFs in preamble/epilogue were collapsed at set time, so free text can
	// never look like delimiter structure.
	exp := "This is the preamble. It is to be ignored.\r\n" +
		"--B\r\n\r\nx\r\n--B--\r\n" +
		"This is the epilogue."
	tcompare(t, m.Encode(), exp)
}

func TestEncodeNested(t *testing.T) {
	inner := New("alternative")
	tcheck(t, inner.SetBoundary("X"), "set boundary")
	var ip BodyPart
	ip.SetType("text/plain")
	ip.SetPayload("hi")
	inner.AddBodyPart(ip)

	outer := New("mixed")
	tcheck(t, outer.SetBoundary("B"), "set boundary")
	var op BodyPart
	// No Content-Type set by the caller: the encoder writes one for the
	// nested multipart.
	op.SetMultipart(inner)
	outer.AddBodyPart(op)

	exp := strings.ReplaceAll(`--B
Content-Type: multipart/alternative; boundary="X"

--X
Content-Type: text/plain

hi
--X--
--B--`, "\n", "\r\n")
	tcompare(t, outer.Encode(), exp)
}

func TestEncodeNestedRewritesContentType(t *testing.T) {
	// A stale Content-Type on the part is overridden on the wire, in place,
	// with the nested multipart's own boundary. The caller's field is not
	// modified.
	inner := New("mixed")
	tcheck(t, inner.SetBoundary("X"), "set boundary")

	outer := New("mixed")
	tcheck(t, outer.SetBoundary("B"), "set boundary")
	var p BodyPart
	p.SetType("text/plain")
	p.SetID("<id@x>")
	p.SetMultipart(inner)
	outer.AddBodyPart(p)

	exp := "--B\r\n" +
		"Content-Type: multipart/mixed; boundary=\"X\"\r\n" +
		"Content-ID: <id@x>\r\n" +
		"\r\n--X\r\n\r\n--X--" +
		"\r\n--B--"
	tcompare(t, outer.Encode(), exp)

	v, ok := outer.Parts[0].Header("Content-Type")
	tcompare(t, ok, true)
	tcompare(t, v, "text/plain")
}

func TestCollapseCRLF(t *testing.T) {
	m := New("mixed")
	m.SetPreamble("a\r\n\r\n\r\nb\r\nc")
	tcompare(t, m.Preamble, "a b c")
	m.SetEpilogue("no newlines")
	tcompare(t, m.Epilogue, "no newlines")
}
