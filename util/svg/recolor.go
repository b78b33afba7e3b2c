package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/beamchat/beam-heart/pkg/lib/logging"
)

var log = logging.Logger("beam-svg")

// Palette resolves the color role names referenced by icon class markers.
type Palette interface {
	Color(role string) (color.NRGBA, bool)
}

// classRule matches a single class token carrying a color marker,
// e.g. "color-primary-fill". The role may not contain a hyphen.
var classRule = regexp.MustCompile(`^color-([^-]+)-(fill|stroke)$`)

// the decoder resolves the predeclared xml prefix to this url
const xmlNamespaceURL = "http://www.w3.org/XML/1998/namespace"

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Recolor rewrites the svg document read from r. Elements whose class
// tokens match classRule get a fill or stroke attribute synthesized from
// the palette value of the captured role, replacing the unprefixed fill
// and stroke attributes they originally carried. Elements without markers
// pass through unchanged, so the transform is safe to run on any icon.
//
// The output is all or nothing: a parse error yields no output at all.
// The decoder alone does not enforce the single-root rule, so text outside
// the root element and a second top-level element are parse errors here.
// Comments, doctypes and processing instructions are not reproduced.
func Recolor(r io.Reader, colors Palette) ([]byte, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		buf      bytes.Buffer
		scopes   nsScopes
		depth    int
		rootSeen bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && rootSeen {
				return nil, fmt.Errorf("parse svg: second root element <%s>", t.Name.Local)
			}
			rootSeen = true
			depth++
			writeStartElement(&buf, t, colors, &scopes)
		case xml.EndElement:
			depth--
			buf.WriteString("</")
			buf.WriteString(scopes.elementName(t.Name))
			buf.WriteByte('>')
			scopes.pop()
		case xml.CharData:
			if depth == 0 && !isXMLSpace(t) {
				return nil, errors.New("parse svg: text outside the root element")
			}
			textEscaper.WriteString(&buf, string(t))
		case xml.ProcInst:
			if t.Target == "xml" {
				writeDocumentDecl(&buf, t.Inst)
			}
		}
	}
	return buf.Bytes(), nil
}

// isXMLSpace reports whether b holds nothing but xml whitespace
// (space, tab, cr, lf). Anything else between document-level tokens
// makes the document non well-formed.
func isXMLSpace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}

// writeStartElement reconstructs the start tag. Synthesized color
// attributes come first, then the original attributes, then the namespace
// declarations made on this element. An unprefixed fill or stroke is
// dropped only when a synthesized attribute actually replaced it, and the
// class attribute itself always stays in place.
func writeStartElement(buf *bytes.Buffer, el xml.StartElement, colors Palette, scopes *nsScopes) {
	scopes.push(el.Attr)

	buf.WriteByte('<')
	buf.WriteString(scopes.elementName(el.Name))

	dropFill, dropStroke := false, false
	for _, attr := range el.Attr {
		if attr.Name.Space == "" && attr.Name.Local == "class" {
			df, ds := writeColorAttrs(buf, attr.Value, colors)
			dropFill = dropFill || df
			dropStroke = dropStroke || ds
		}
	}

	for _, attr := range el.Attr {
		if isNamespaceDecl(attr.Name) {
			continue
		}
		if attr.Name.Space == "" {
			if (attr.Name.Local == "fill" && dropFill) || (attr.Name.Local == "stroke" && dropStroke) {
				continue
			}
		}
		buf.WriteByte(' ')
		if attr.Name.Space != "" {
			buf.WriteString(scopes.prefixOf(attr.Name.Space))
			buf.WriteByte(':')
		}
		buf.WriteString(attr.Name.Local)
		buf.WriteString(`="`)
		attrEscaper.WriteString(buf, attr.Value)
		buf.WriteByte('"')
	}

	for _, attr := range el.Attr {
		if !isNamespaceDecl(attr.Name) {
			continue
		}
		buf.WriteString(" xmlns")
		if attr.Name.Space == "xmlns" {
			buf.WriteByte(':')
			buf.WriteString(attr.Name.Local)
		}
		buf.WriteString(`="`)
		attrEscaper.WriteString(buf, attr.Value)
		buf.WriteByte('"')
	}

	buf.WriteByte('>')
}

// writeColorAttrs appends one synthesized attribute per matching class
// token and reports which attribute names were produced, the originals
// they replace must be dropped by the caller. A role missing from the
// palette is logged and skipped, the element then keeps its own colors.
func writeColorAttrs(buf *bytes.Buffer, classAttr string, colors Palette) (dropFill, dropStroke bool) {
	for _, token := range strings.Split(classAttr, " ") {
		m := classRule.FindStringSubmatch(strings.TrimSpace(token))
		if m == nil {
			continue
		}
		role, attrName := m[1], m[2]
		c, ok := colors.Color(role)
		if !ok {
			log.Warnf("color name '%s' does not exist", role)
			continue
		}
		if attrName == "fill" {
			dropFill = true
		} else {
			dropStroke = true
		}
		fmt.Fprintf(buf, ` %s="#%02x%02x%02x"`, attrName, c.R, c.G, c.B)
	}
	return
}

func isNamespaceDecl(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns")
}

// writeDocumentDecl reproduces the xml declaration of the source. The
// rewritten document is always utf-8, whatever the source encoding was,
// so the encoding pseudo-attr is pinned and the rest are dropped.
func writeDocumentDecl(buf *bytes.Buffer, inst []byte) {
	version := procInstValue(inst, "version")
	if version == "" {
		version = "1.0"
	}
	buf.WriteString(`<?xml version="`)
	buf.WriteString(version)
	buf.WriteString(`" encoding="UTF-8"?>`)
}

func procInstValue(inst []byte, param string) string {
	v := string(inst)
	idx := strings.Index(v, param+"=")
	if idx < 0 {
		return ""
	}
	v = v[idx+len(param)+1:]
	if v == "" {
		return ""
	}
	quote := v[0]
	if quote != '\'' && quote != '"' {
		return ""
	}
	end := strings.IndexByte(v[1:], quote)
	if end < 0 {
		return ""
	}
	return v[1 : 1+end]
}

// nsScopes recovers prefixes. The decoder resolves prefixed names to
// their namespace uri, reconstruction needs the uri mapped back through
// the declarations currently in scope.
type nsScopes struct {
	stack []nsFrame
}

// nsFrame holds the declarations made on one element.
type nsFrame struct {
	prefixes map[string]string // uri -> prefix
	def      string            // uri of the default declaration, if any
}

func (s *nsScopes) push(attrs []xml.Attr) {
	var frame nsFrame
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			if frame.prefixes == nil {
				frame.prefixes = make(map[string]string)
			}
			frame.prefixes[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			frame.def = a.Value
		}
	}
	s.stack = append(s.stack, frame)
}

func (s *nsScopes) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
}

// prefixOf resolves an attribute namespace. Default declarations are
// not consulted, they never apply to attributes.
func (s *nsScopes) prefixOf(space string) string {
	if space == xmlNamespaceURL {
		return "xml"
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if p, ok := s.stack[i].prefixes[space]; ok {
			return p
		}
	}
	// the decoder leaves undeclared prefixes verbatim in the space field
	return space
}

// elementName renders a tag name back to its source form. Elements in a
// default namespace stay unprefixed, prefixed names get the innermost
// prefix bound to their namespace.
func (s *nsScopes) elementName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	if n.Space == xmlNamespaceURL {
		return "xml:" + n.Local
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].def == n.Space {
			return n.Local
		}
		if p, ok := s.stack[i].prefixes[n.Space]; ok {
			return p + ":" + n.Local
		}
	}
	return n.Space + ":" + n.Local
}
