package readably

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTestCase = `<html><body><p>Some text and <a class="someclass" href="#">a link</a></p>` +
	`<div id="foo">With a <script>With &lt; fancy " characters in it because` +
	`</script> that is fun.<span>And another node to make it harder</span></div>` +
	`<form><input type="text"/><input type="number"/>Here's a form</form></body></html>`

func parseDoc(t *testing.T, markup, uri string) *node {
	t.Helper()
	doc, err := newParser(defaultOpts()).parse(markup, uri)
	require.NoError(t, err)
	return doc
}

func TestParserBasics(t *testing.T) {

	t.Run("should build the parent child hierarchy and serialize back", func(t *testing.T) {
		doc := parseDoc(t, baseTestCase, "http://fakehost/")

		assert.Equal(t, 10, len(doc.getElementsByTagName("*")))

		foo := doc.getElementById("foo")
		require.NotNil(t, foo)
		assert.Equal(t, "body", foo.parent.localName)
		assert.Equal(t, doc.body, foo.parent)
		assert.Equal(t, doc.root, doc.body.parent)
		assert.Equal(t, 3, len(doc.body.childNodes))

		generated := doc.getElementsByTagName("p")[0].innerHTML()
		assert.Equal(t, `Some text and <a class="someclass" href="#">a link</a>`, generated)
	})

	t.Run("should treat script bodies as raw text", func(t *testing.T) {
		doc := parseDoc(t, baseTestCase, "http://fakehost/")

		script := doc.getElementsByTagName("script")[0]
		assert.Equal(t, `With &lt; fancy " characters in it because`, script.textContent())
		// No markup is ever smuggled out of a script body.
		assert.Empty(t, script.getElementsByTagName("*"))
	})

	t.Run("should decode entities in text nodes", func(t *testing.T) {
		doc := parseDoc(t, "<p>&#xa7; and &#167; and &amp; and &#10086;</p>", "")
		assert.Equal(t, "§ and § and & and ❦", doc.getElementsByTagName("p")[0].textContent())
	})

	t.Run("should keep unknown entities as-is", func(t *testing.T) {
		doc := parseDoc(t, "<p>&notanentity; stays</p>", "")
		assert.Equal(t, "&notanentity; stays", doc.getElementsByTagName("p")[0].textContent())

		// A known-entity prefix inside an unknown name must not expand.
		doc = parseDoc(t, "<p>&copyright; of AT&T</p>", "")
		assert.Equal(t, "&copyright; of AT&T", doc.getElementsByTagName("p")[0].textContent())
	})

	t.Run("should record the document uri and base uri", func(t *testing.T) {
		doc := parseDoc(t, baseTestCase, "http://fakehost/")
		assert.Equal(t, "http://fakehost/", doc.uri)
		assert.Equal(t, "http://fakehost/", doc.getBaseURI())
	})

	t.Run("should resolve a base element against the document uri", func(t *testing.T) {
		doc := parseDoc(t, `<html><head><base href="/foo/"></head><body><p>hi</p></body></html>`, "http://fakehost/a/b.html")
		assert.Equal(t, "http://fakehost/foo/", doc.getBaseURI())
	})
}

func TestParserLeniency(t *testing.T) {

	t.Run("should close unclosed elements at end of input", func(t *testing.T) {
		doc := parseDoc(t, "<html><body><div><p>never closed", "")
		p := doc.getElementsByTagName("p")
		require.Len(t, p, 1)
		assert.Equal(t, "never closed", p[0].textContent())
		assert.Equal(t, "DIV", p[0].parent.tag)
	})

	t.Run("should drop stray close tags", func(t *testing.T) {
		doc := parseDoc(t, "<div>one</span></em>two</div>", "")
		assert.Equal(t, "onetwo", doc.getElementsByTagName("div")[0].textContent())
	})

	t.Run("should auto-close an open p on block elements", func(t *testing.T) {
		doc := parseDoc(t, "<body><p>first<div>second</div></body>", "")
		p := doc.getElementsByTagName("p")[0]
		assert.Equal(t, "first", p.textContent())
		assert.Empty(t, p.getElementsByTagName("div"))
		assert.Equal(t, "BODY", doc.getElementsByTagName("div")[0].parent.tag)
	})

	t.Run("should collapse duplicate attributes last-wins", func(t *testing.T) {
		doc := parseDoc(t, `<div id="first" id="second">x</div>`, "")
		div := doc.getElementsByTagName("div")[0]
		assert.Equal(t, "second", div.getAttribute("id"))
		assert.Len(t, div.attrs, 1)
	})

	t.Run("should read single-quoted and bare attribute values", func(t *testing.T) {
		doc := parseDoc(t, `<a href='/x' rel=author hidden>by someone</a>`, "")
		a := doc.getElementsByTagName("a")[0]
		assert.Equal(t, "/x", a.getAttribute("href"))
		assert.Equal(t, "author", a.getAttribute("rel"))
		assert.True(t, a.hasAttribute("hidden"))
	})

	t.Run("should keep comments out of text content", func(t *testing.T) {
		doc := parseDoc(t, "<p>before<!-- a comment -->after</p>", "")
		assert.Equal(t, "beforeafter", doc.getElementsByTagName("p")[0].textContent())
	})

	t.Run("should discard doctypes and processing instructions", func(t *testing.T) {
		doc := parseDoc(t, `<!DOCTYPE html><?xml version="1.0"?><html><body><p>hi</p></body></html>`, "")
		assert.Equal(t, "hi", doc.getElementsByTagName("p")[0].textContent())
	})

	t.Run("should treat a lone angle bracket as text", func(t *testing.T) {
		doc := parseDoc(t, "<p>1 < 2</p>", "")
		assert.Equal(t, "1 < 2", doc.getElementsByTagName("p")[0].textContent())
	})

	t.Run("should synthesize the html and body shell for fragments", func(t *testing.T) {
		doc := parseDoc(t, "<p>just a paragraph</p>", "")
		require.NotNil(t, doc.root)
		require.NotNil(t, doc.body)
		assert.Equal(t, "BODY", doc.getElementsByTagName("p")[0].parent.tag)
	})

	t.Run("should adopt an explicit body without an html wrapper", func(t *testing.T) {
		doc := parseDoc(t, `<body><div class="article">x</div></body>`, "")
		assert.Len(t, doc.getElementsByTagName("body"), 1)
		require.NotNil(t, doc.body.firstElementChild())
		assert.Equal(t, "DIV", doc.body.firstElementChild().tag)
		assert.Equal(t, `<div class="article">x</div>`, doc.body.innerHTML())
	})

	t.Run("should adopt top-level head and body landmarks", func(t *testing.T) {
		doc := parseDoc(t, `<head><title>Bare Landmarks</title></head><body><p>x</p></body>`, "")
		require.NotNil(t, doc.head)
		assert.Equal(t, "Bare Landmarks", doc.titleText)
		assert.Equal(t, "P", doc.body.firstElementChild().tag)
	})

	t.Run("should fold stray top-level content under the adopted body", func(t *testing.T) {
		doc := parseDoc(t, `<span>before</span><body><p>inside</p></body><span>after</span>`, "")
		assert.Len(t, doc.getElementsByTagName("body"), 1)

		var tags []string
		for _, child := range doc.body.children {
			tags = append(tags, child.tag)
		}
		assert.Equal(t, []string{"SPAN", "P", "SPAN"}, tags)
	})

	t.Run("should pick the document title skipping svg titles", func(t *testing.T) {
		doc := parseDoc(t, `<html><head><title> The Title </title></head>`+
			`<body><svg><title>shape name</title></svg></body></html>`, "")
		assert.Equal(t, "The Title", doc.titleText)
	})
}

func TestParserGuards(t *testing.T) {

	t.Run("should fail on nesting deeper than the guard", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < maxParseDepth+10; i++ {
			sb.WriteString("<div>")
		}
		sb.WriteString("deep")

		_, err := newParser(defaultOpts()).parse(sb.String(), "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooDeep))

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "div", parseErr.Detail)
	})

	t.Run("should keep the partial tree when the element cap is hit", func(t *testing.T) {
		opts := defaultOpts()
		opts.maxElemsToParse = 5

		doc, err := newParser(opts).parse(
			"<html><body><p>one</p><p>two</p><p>three</p><p>four</p><p>five</p></body></html>", "")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(doc.getElementsByTagName("*")), 5)
		assert.Contains(t, doc.body.textContent(), "one")
	})

	t.Run("should fail when the input holds no elements", func(t *testing.T) {
		_, err := newParser(defaultOpts()).parse("no tags at all", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoRootElement))
	})
}

func TestDomMutation(t *testing.T) {

	t.Run("should keep sibling links consistent across removals", func(t *testing.T) {
		doc := parseDoc(t, "<body><em>a</em><span>b</span><b>c</b></body>", "")
		span := doc.getElementsByTagName("span")[0]

		removed, err := span.parent.removeChild(span)
		require.NoError(t, err)
		assert.Equal(t, span, removed)

		em := doc.getElementsByTagName("em")[0]
		b := doc.getElementsByTagName("b")[0]
		assert.Equal(t, b, em.nextElement)
		assert.Equal(t, em, b.prevElement)
		assert.Nil(t, span.parent)
	})

	t.Run("should replace children in place", func(t *testing.T) {
		doc := parseDoc(t, "<body><div><font>old</font><span>tail</span></div></body>", "")
		div := doc.getElementsByTagName("div")[0]
		font := doc.getElementsByTagName("font")[0]

		p := newElement("p")
		p.appendChild(newText("new"))
		div.replaceChild(p, font)

		assert.Equal(t, `<p>new</p><span>tail</span>`, div.innerHTML())
	})

	t.Run("should reparse markup on setInnerHTML", func(t *testing.T) {
		doc := parseDoc(t, "<body><div id='x'>old</div></body>", "")
		div := doc.getElementById("x")
		div.setInnerHTML("<p>fresh <b>content</b></p>")

		assert.Equal(t, "fresh content", div.textContent())
		assert.Len(t, div.getElementsByTagName("b"), 1)
	})

	t.Run("should carry the element cap into innerHTML reparses", func(t *testing.T) {
		opts := defaultOpts()
		opts.maxElemsToParse = 3
		doc, err := newParser(opts).parse("<html><body><div>seed</div></body></html>", "")
		require.NoError(t, err)

		doc.body.setInnerHTML("<div><p>a</p><p>b</p><p>c</p></div>")
		assert.Len(t, doc.body.getElementsByTagName("p"), 2)
	})

	t.Run("should escape text and attributes when serializing", func(t *testing.T) {
		doc := parseDoc(t, "<body><div>x</div></body>", "")
		div := doc.getElementsByTagName("div")[0]
		div.setAttribute("title", `a "quoted" <value>`)
		div.setTextContent("1 < 2 & 3 > 2")

		assert.Equal(t,
			`<div title="a &quot;quoted&quot; &lt;value&gt;">1 &lt; 2 &amp; 3 &gt; 2</div>`,
			doc.body.innerHTML())
	})

	t.Run("should cache and invalidate text length", func(t *testing.T) {
		doc := parseDoc(t, "<body><div>hello</div></body>", "")
		div := doc.getElementsByTagName("div")[0]
		assert.Equal(t, 5, div.textLength())

		div.appendChild(newText(" world"))
		assert.Equal(t, 11, div.textLength())
		assert.Equal(t, 11, doc.body.textLength())
	})
}
