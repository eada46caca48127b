package readably

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

type nodeKind uint8

const (
	elementNode nodeKind = iota + 1
	textNode
	commentNode
	documentNode
)

// Elements that never hold children.
var voidElems = map[string]bool{
	"area":    true,
	"base":    true,
	"br":      true,
	"col":     true,
	"command": true,
	"embed":   true,
	"hr":      true,
	"img":     true,
	"input":   true,
	"link":    true,
	"meta":    true,
	"param":   true,
	"source":  true,
	"track":   true,
	"wbr":     true,
}

// Elements whose content is raw text, never traversed as markup.
// noscript is absent on purpose: the pipeline unwraps images out of it.
var rawTextElems = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
}

var textEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
)

var attrEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&apos;",
)

type attribute struct {
	name  string
	value string
}

// node is the single variant type behind the document tree: element, text,
// comment, or the document itself. The parent pointer is non-owning; only
// childNodes own their members, so the tree stays acyclic by construction.
type node struct {
	kind nodeKind

	// element
	localName string // normalized lowercase
	tag       string // uppercase, for the pipeline's tag tables
	attrs     []attribute

	// text/comment payload
	data string

	parent      *node
	prevSibling *node
	nextSibling *node
	prevElement *node
	nextElement *node
	childNodes  []*node
	children    []*node // element children only

	// document-only fields
	uri       string
	baseURI   string
	titleText string
	head      *node
	body      *node
	root      *node
	opts      *Options // options the document was parsed with

	// cached rune length of textContent, dropped on any subtree mutation
	textLen   int
	textLenOK bool
}

func newElement(tag string) *node {
	// Non-namespace aware: strip any prefix and pretend it's all HTML.
	if i := strings.LastIndex(tag, ":"); i != -1 {
		tag = tag[i+1:]
	}
	return &node{
		kind:      elementNode,
		localName: strings.ToLower(tag),
		tag:       strings.ToUpper(tag),
	}
}

func newText(data string) *node {
	return &node{kind: textNode, data: data}
}

func newComment() *node {
	return &node{kind: commentNode}
}

func newDocument(uri string) *node {
	return &node{kind: documentNode, uri: uri}
}

func (n *node) firstChild() *node {
	if len(n.childNodes) == 0 {
		return nil
	}
	return n.childNodes[0]
}

func (n *node) lastChild() *node {
	if len(n.childNodes) == 0 {
		return nil
	}
	return n.childNodes[len(n.childNodes)-1]
}

func (n *node) firstElementChild() *node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// invalidateText drops the cached text length on n and every ancestor.
func (n *node) invalidateText() {
	for p := n; p != nil; p = p.parent {
		p.textLenOK = false
	}
}

func (n *node) appendChild(child *node) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}

	if last := n.lastChild(); last != nil {
		last.nextSibling = child
		child.prevSibling = last
	}

	if child.kind == elementNode {
		if len(n.children) != 0 {
			child.prevElement = n.children[len(n.children)-1]
			child.prevElement.nextElement = child
		}
		n.children = append(n.children, child)
	}

	n.childNodes = append(n.childNodes, child)
	child.parent = n
	n.invalidateText()
}

func (n *node) removeChild(child *node) (*node, error) {
	idx := slices.Index(n.childNodes, child)
	if idx == -1 {
		return nil, fmt.Errorf("removeChild: node not found")
	}

	child.parent = nil
	if prev := child.prevSibling; prev != nil {
		prev.nextSibling = child.nextSibling
	}
	if next := child.nextSibling; next != nil {
		next.prevSibling = child.prevSibling
	}

	if child.kind == elementNode {
		if prev := child.prevElement; prev != nil {
			prev.nextElement = child.nextElement
		}
		if next := child.nextElement; next != nil {
			next.prevElement = child.prevElement
		}
		n.children = slices.Delete(n.children, slices.Index(n.children, child), slices.Index(n.children, child)+1)
	}

	child.prevSibling, child.nextSibling = nil, nil
	child.prevElement, child.nextElement = nil, nil

	n.childNodes = slices.Delete(n.childNodes, idx, idx+1)
	n.invalidateText()
	return child, nil
}

func (n *node) replaceChild(newNode, oldNode *node) *node {
	idx := slices.Index(n.childNodes, oldNode)
	if idx == -1 {
		return nil
	}
	if newNode.parent != nil {
		newNode.parent.removeChild(newNode)
	}

	next := oldNode.nextSibling
	if _, err := n.removeChild(oldNode); err != nil {
		return nil
	}
	if next == nil {
		n.appendChild(newNode)
	} else {
		n.insertBefore(newNode, next)
	}
	return oldNode
}

func (n *node) insertBefore(newNode, ref *node) {
	idx := slices.Index(n.childNodes, ref)
	if idx == -1 {
		n.appendChild(newNode)
		return
	}
	if newNode.parent != nil {
		newNode.parent.removeChild(newNode)
	}

	newNode.nextSibling = ref
	newNode.prevSibling = ref.prevSibling
	if ref.prevSibling != nil {
		ref.prevSibling.nextSibling = newNode
	}
	ref.prevSibling = newNode
	n.childNodes = slices.Insert(n.childNodes, idx, newNode)

	if newNode.kind == elementNode {
		// Find the element neighbours by scanning outward from the ref slot.
		var prevEl, nextEl *node
		for i := idx - 1; i >= 0; i-- {
			if n.childNodes[i].kind == elementNode {
				prevEl = n.childNodes[i]
				break
			}
		}
		for i := idx + 1; i < len(n.childNodes); i++ {
			if n.childNodes[i].kind == elementNode {
				nextEl = n.childNodes[i]
				break
			}
		}
		newNode.prevElement, newNode.nextElement = prevEl, nextEl
		if prevEl != nil {
			prevEl.nextElement = newNode
		}
		if nextEl != nil {
			nextEl.prevElement = newNode
			n.children = slices.Insert(n.children, slices.Index(n.children, nextEl), newNode)
		} else {
			n.children = append(n.children, newNode)
		}
	}

	newNode.parent = n
	n.invalidateText()
}

func (n *node) getAttribute(name string) string {
	for i := len(n.attrs) - 1; i >= 0; i-- {
		if n.attrs[i].name == name {
			return n.attrs[i].value
		}
	}
	return ""
}

// setAttribute keeps attribute order stable; duplicates collapse to the
// last written value.
func (n *node) setAttribute(name, value string) {
	for i := range n.attrs {
		if n.attrs[i].name == name {
			n.attrs[i].value = value
			return
		}
	}
	n.attrs = append(n.attrs, attribute{name: name, value: value})
}

func (n *node) removeAttribute(name string) {
	for i := range n.attrs {
		if n.attrs[i].name == name {
			n.attrs = slices.Delete(n.attrs, i, i+1)
			return
		}
	}
}

func (n *node) hasAttribute(name string) bool {
	return slices.ContainsFunc(n.attrs, func(a attribute) bool {
		return a.name == name
	})
}

func (n *node) class() string { return n.getAttribute("class") }
func (n *node) id() string    { return n.getAttribute("id") }

// styleProperty reads one CSS property out of an inline style attribute.
func (n *node) styleProperty(name string) string {
	style := n.getAttribute("style")
	if style == "" {
		return ""
	}
	for _, decl := range strings.Split(style, ";") {
		prop, value, found := strings.Cut(decl, ":")
		if found && strings.TrimSpace(prop) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (n *node) getElementsByTagName(tag string) []*node {
	tag = strings.ToUpper(tag)
	all := tag == "*"

	var elems []*node
	var walk func(from *node)
	walk = func(from *node) {
		for _, child := range from.children {
			if all || child.tag == tag {
				elems = append(elems, child)
			}
			walk(child)
		}
	}
	walk(n)
	return elems
}

func (n *node) getElementById(id string) *node {
	var find func(from *node) *node
	find = func(from *node) *node {
		if from.kind == elementNode && from.id() == id {
			return from
		}
		for _, child := range from.children {
			if el := find(child); el != nil {
				return el
			}
		}
		return nil
	}
	return find(n)
}

func (n *node) textContent() string {
	switch n.kind {
	case textNode:
		return n.data
	case commentNode:
		return ""
	}
	var sb strings.Builder
	var walk func(from *node)
	walk = func(from *node) {
		for _, child := range from.childNodes {
			if child.kind == textNode {
				sb.WriteString(child.data)
			} else {
				walk(child)
			}
		}
	}
	walk(n)
	return sb.String()
}

// textLength returns the rune count of textContent, cached between
// mutations so the scorer's repeated length checks stay cheap.
func (n *node) textLength() int {
	if !n.textLenOK {
		n.textLen = utf8.RuneCountInString(n.textContent())
		n.textLenOK = true
	}
	return n.textLen
}

func (n *node) setTextContent(text string) {
	if n.kind == textNode {
		n.data = text
		n.invalidateText()
		return
	}
	for i := len(n.childNodes) - 1; i >= 0; i-- {
		n.childNodes[i].parent = nil
	}
	t := newText(text)
	t.parent = n
	n.childNodes = []*node{t}
	n.children = nil
	n.invalidateText()
}

func (n *node) innerHTML() string {
	if n.kind == textNode {
		return textEscaper.Replace(n.data)
	}

	var sb strings.Builder
	var walk func(from *node)
	walk = func(from *node) {
		for _, child := range from.childNodes {
			switch child.kind {
			case textNode:
				sb.WriteString(textEscaper.Replace(child.data))
			case elementNode:
				sb.WriteString("<" + child.localName)
				for _, a := range child.attrs {
					val := attrEscaper.Replace(a.value)
					sb.WriteString(" " + a.name + `="` + val + `"`)
				}
				if voidElems[child.localName] {
					sb.WriteString("/>")
				} else {
					sb.WriteString(">")
					walk(child)
					sb.WriteString("</" + child.localName + ">")
				}
			}
		}
	}
	walk(n)
	return sb.String()
}

func (n *node) ownerDocument() *node {
	for p := n; p != nil; p = p.parent {
		if p.kind == documentNode {
			return p
		}
	}
	return nil
}

// setInnerHTML replaces the node's children with a freshly parsed fragment,
// under the same options the owning document was parsed with.
func (n *node) setInnerHTML(markup string) {
	if n.kind == textNode {
		n.data = markup
		n.invalidateText()
		return
	}
	opts := defaultOpts()
	if doc := n.ownerDocument(); doc != nil && doc.opts != nil {
		opts = doc.opts
	}
	fragment, err := newParser(opts).parse(markup, "")
	if err != nil {
		return
	}
	for i := len(n.childNodes) - 1; i >= 0; i-- {
		n.childNodes[i].parent = nil
	}
	n.childNodes, n.children = nil, nil
	// Re-home the fragment's body children when the fragment got a
	// synthesized html/body shell, otherwise take the top level as-is.
	src := fragment.body
	if src == nil {
		src = fragment
	}
	for src.firstChild() != nil {
		n.appendChild(src.firstChild())
	}
	n.invalidateText()
}

// getBaseURI resolves a <base href> against the document URI, falling back
// to the document URI itself.
func (d *node) getBaseURI() string {
	if d.baseURI != "" {
		return d.baseURI
	}
	d.baseURI = d.uri
	bases := d.getElementsByTagName("base")
	if len(bases) != 0 {
		if href := bases[0].getAttribute("href"); href != "" {
			base, err := url.Parse(d.uri)
			if err != nil {
				return d.baseURI
			}
			ref, err := url.Parse(href)
			if err != nil {
				return d.baseURI
			}
			d.baseURI = base.ResolveReference(ref).String()
		}
	}
	return d.baseURI
}
