/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this file,
 * You can obtain one at http://mozilla.org/MPL/2.0/. */

package readably

import (
	"html"
	"log/slog"
	"regexp"
	"strings"
)

// Nesting deeper than this fails the parse instead of building an
// arbitrarily tall tree out of adversarial input.
const maxParseDepth = 512

// Block-level tags that implicitly close an open <p>.
var pAutoClose = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "div": true, "dl": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "main": true, "menu": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"ul": true,
}

// parser is a lenient, single-pass markup reader. It keeps an explicit
// open-element stack instead of recursing, so the depth guard bounds the
// whole parse. Broken input degrades: unmatched close tags are dropped,
// unclosed elements are closed at end of input, and a nonzero element cap
// stops the parse early with whatever tree exists so far.
type parser struct {
	input     string
	pos       int
	opts      *Options
	log       *slog.Logger
	elems     int
	truncated bool
}

func newParser(opts *Options) *parser {
	return &parser{
		opts: opts,
		log:  loggerFor(opts),
	}
}

func (p *parser) parse(markup, uri string) (*node, error) {
	p.input = markup
	p.pos = 0
	p.elems = 0
	p.truncated = false

	doc := newDocument(uri)
	doc.opts = p.opts
	stack := []*node{doc}
	top := func() *node { return stack[len(stack)-1] }

	for p.pos < len(p.input) && !p.truncated {
		if p.input[p.pos] != '<' {
			p.readText(top())
			continue
		}

		rest := p.input[p.pos:]
		switch {
		case strings.HasPrefix(rest, "</"):
			name := p.readCloseTag()
			if name == "" {
				continue
			}
			// Pop to the matching open element; a close tag with no open
			// counterpart is stray markup and is dropped.
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].localName == name {
					stack = stack[:i]
					break
				}
			}

		case strings.HasPrefix(rest, "<!--"):
			p.readComment(top())

		case strings.HasPrefix(rest, "<!") || strings.HasPrefix(rest, "<?"):
			p.discardTo(">")

		case len(rest) > 1 && isTagStart(rest[1]):
			el, selfClosed := p.readOpenTag()
			if el == nil {
				continue
			}
			if p.opts.maxElemsToParse > 0 && p.elems >= p.opts.maxElemsToParse {
				// Element budget hit: keep the partial tree.
				p.log.Debug("element cap reached, truncating parse", "cap", p.opts.maxElemsToParse)
				p.truncated = true
				continue
			}
			p.elems++

			if top().localName == "p" && pAutoClose[el.localName] {
				stack = stack[:len(stack)-1]
			}

			top().appendChild(el)

			if rawTextElems[el.localName] {
				p.readRawText(el)
				continue
			}
			if selfClosed || voidElems[el.localName] {
				continue
			}
			stack = append(stack, el)
			if len(stack) > maxParseDepth {
				return nil, &ParseError{Reason: ErrTooDeep, Detail: el.localName}
			}

		default:
			// A lone '<' that opens nothing; treat it as text.
			top().appendChild(newText("<"))
			p.pos++
		}
	}

	if err := shapeDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isTagStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

var charRef = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

// decodeEntities decodes only well-formed character references. Stdlib
// UnescapeString alone also expands legacy semicolon-less prefixes, which
// would corrupt unknown entities like "&notanentity;".
func decodeEntities(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return charRef.ReplaceAllStringFunc(s, func(ref string) string {
		decoded := html.UnescapeString(ref)
		// A prefix-only expansion leaves the reference's tail behind.
		if len(decoded) > 1 && strings.HasSuffix(decoded, ";") {
			return ref
		}
		return decoded
	})
}

// readText consumes a run of character data up to the next tag.
func (p *parser) readText(parent *node) {
	end := strings.IndexByte(p.input[p.pos:], '<')
	var text string
	if end == -1 {
		text = p.input[p.pos:]
		p.pos = len(p.input)
	} else {
		text = p.input[p.pos : p.pos+end]
		p.pos += end
	}
	// Unknown entities and unescaped ampersands pass through as-is.
	parent.appendChild(newText(decodeEntities(text)))
}

func (p *parser) readComment(parent *node) {
	p.pos += len("<!--")
	end := strings.Index(p.input[p.pos:], "-->")
	if end == -1 {
		p.pos = len(p.input)
	} else {
		p.pos += end + len("-->")
	}
	parent.appendChild(newComment())
}

func (p *parser) discardTo(marker string) {
	idx := strings.Index(p.input[p.pos:], marker)
	if idx == -1 {
		p.pos = len(p.input)
		return
	}
	p.pos += idx + len(marker)
}

func (p *parser) readCloseTag() string {
	p.pos += len("</")
	end := strings.IndexByte(p.input[p.pos:], '>')
	if end == -1 {
		p.pos = len(p.input)
		return ""
	}
	name := strings.ToLower(strings.TrimSpace(p.input[p.pos : p.pos+end]))
	p.pos += end + 1
	return name
}

// readOpenTag parses "<name attrs...>" or "<name attrs.../>" starting at '<'.
func (p *parser) readOpenTag() (*node, bool) {
	p.pos++ // consume '<'
	start := p.pos
	for p.pos < len(p.input) && !isSpace(p.input[p.pos]) && p.input[p.pos] != '>' && p.input[p.pos] != '/' {
		p.pos++
	}
	name := p.input[start:p.pos]
	if name == "" {
		return nil, false
	}
	el := newElement(name)
	selfClosed := p.readAttributes(el)
	return el, selfClosed
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// readAttributes consumes the remainder of an open tag. Duplicate
// attributes collapse last-write-wins; values may be double-quoted,
// single-quoted, or bare.
func (p *parser) readAttributes(el *node) (selfClosed bool) {
	for p.pos < len(p.input) {
		for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
			p.pos++
		}
		if p.pos >= len(p.input) {
			return false
		}
		switch p.input[p.pos] {
		case '>':
			p.pos++
			return false
		case '/':
			p.pos++
			if p.pos < len(p.input) && p.input[p.pos] == '>' {
				p.pos++
				return true
			}
			continue
		}

		start := p.pos
		for p.pos < len(p.input) && !isSpace(p.input[p.pos]) &&
			p.input[p.pos] != '=' && p.input[p.pos] != '>' && p.input[p.pos] != '/' {
			p.pos++
		}
		name := strings.ToLower(p.input[start:p.pos])
		if name == "" {
			p.pos++
			continue
		}

		for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
			p.pos++
		}
		if p.pos >= len(p.input) || p.input[p.pos] != '=' {
			el.setAttribute(name, "")
			continue
		}
		p.pos++ // consume '='
		for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
			p.pos++
		}
		if p.pos >= len(p.input) {
			el.setAttribute(name, "")
			return false
		}

		var value string
		if q := p.input[p.pos]; q == '"' || q == '\'' {
			p.pos++
			end := strings.IndexByte(p.input[p.pos:], q)
			if end == -1 {
				value = p.input[p.pos:]
				p.pos = len(p.input)
			} else {
				value = p.input[p.pos : p.pos+end]
				p.pos += end + 1
			}
		} else {
			start := p.pos
			for p.pos < len(p.input) && !isSpace(p.input[p.pos]) && p.input[p.pos] != '>' {
				p.pos++
			}
			value = p.input[start:p.pos]
		}
		el.setAttribute(name, decodeEntities(value))
	}
	return false
}

// readRawText consumes everything up to the element's close tag as opaque
// text, so script and style bodies can never smuggle markup into the tree.
func (p *parser) readRawText(el *node) {
	closeTag := "</" + el.localName
	idx := strings.Index(strings.ToLower(p.input[p.pos:]), closeTag)
	var raw string
	if idx == -1 {
		raw = p.input[p.pos:]
		p.pos = len(p.input)
	} else {
		raw = p.input[p.pos : p.pos+idx]
		p.pos += idx
		p.discardTo(">")
	}
	if raw != "" {
		if el.localName == "textarea" {
			raw = decodeEntities(raw)
		}
		el.appendChild(newText(raw))
	}
}

// shapeDocument locates or synthesizes the html/head/body landmarks and the
// document title, mirroring how browsers normalize fragment input. A
// document with no element content at all is a structural failure.
func shapeDocument(doc *node) error {
	var htmlEl *node
	for _, child := range doc.children {
		if child.localName == "html" {
			htmlEl = child
			break
		}
	}

	if htmlEl == nil {
		if len(doc.getElementsByTagName("*")) == 0 {
			return &ParseError{Reason: ErrNoRootElement}
		}
		htmlEl = newElement("html")
		// An explicit top-level <head> or <body> is adopted as the
		// landmark, never nested under a synthesized one.
		var head, body *node
		for _, child := range doc.children {
			switch child.localName {
			case "head":
				if head == nil {
					head = child
				}
			case "body":
				if body == nil {
					body = child
				}
			}
		}
		if body == nil {
			body = newElement("body")
		}
		// Stray top-level nodes fold under the body, keeping their order
		// relative to the body's own content.
		var before, after []*node
		seenBody := false
		for _, cn := range doc.childNodes {
			switch cn {
			case head:
			case body:
				seenBody = true
			default:
				if seenBody {
					after = append(after, cn)
				} else {
					before = append(before, cn)
				}
			}
		}
		ref := body.firstChild()
		for _, cn := range before {
			body.insertBefore(cn, ref)
		}
		for _, cn := range after {
			body.appendChild(cn)
		}
		if head != nil {
			htmlEl.appendChild(head)
		}
		htmlEl.appendChild(body)
		doc.appendChild(htmlEl)
	} else {
		// Drop root-level siblings of <html> (doctypes are already gone,
		// stray text outside the root carries no content we keep).
		for i := len(doc.childNodes) - 1; i >= 0; i-- {
			if doc.childNodes[i] != htmlEl {
				doc.removeChild(doc.childNodes[i])
			}
		}
	}
	doc.root = htmlEl

	for _, child := range htmlEl.children {
		switch child.localName {
		case "head":
			if doc.head == nil {
				doc.head = child
			}
		case "body":
			if doc.body == nil {
				doc.body = child
			}
		}
	}
	if doc.body == nil {
		body := newElement("body")
		for i := 0; i < len(htmlEl.childNodes); {
			child := htmlEl.childNodes[i]
			if child == doc.head {
				i++
				continue
			}
			body.appendChild(child)
		}
		htmlEl.appendChild(body)
		doc.body = body
	}

	// Only the first non-SVG title counts; SVG documents embed their own.
	for _, title := range doc.getElementsByTagName("title") {
		if hasAncestorLocalName(title, "svg") {
			continue
		}
		doc.titleText = strings.TrimSpace(title.textContent())
		break
	}
	return nil
}

func hasAncestorLocalName(n *node, name string) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.localName == name {
			return true
		}
	}
	return false
}
