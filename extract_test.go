package readably

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yosssi/gohtml"
)

const pageURI = "http://fakehost/test/page.html"

func longParagraphs(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("<p>The quick brown fox, a perennially busy animal, jumped over the lazy dog " +
			"while the afternoon sun, warm and golden, settled over the quiet valley. " +
			"Nobody in the village, least of all the baker, expected such commotion, " +
			"noise, and dust before dusk.</p>")
	}
	return sb.String()
}

func articlePage() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<title>Article Name - Example Site</title>
<meta property="og:site_name" content="Example Site"/>
<meta property="og:description" content="A short description of the article."/>
<meta name="author" content="Jane Doe"/>
<meta property="article:published_time" content="2024-03-05T10:00:00Z"/>
</head>
<body>
<nav role="navigation"><ul><li><a href="/home">Home</a></li><li><a href="/about">About</a></li></ul></nav>
<div class="article-content">
<h1>Article Name</h1>
` + longParagraphs(4) + `
<p>Read the <a href="/archive">archive</a> for more stories like this one.</p>
</div>
<footer>Copyright 2024 Example Site</footer>
</body>
</html>`
}

func TestExtract(t *testing.T) {

	res, err := Extract(articlePage(), pageURI)
	require.NoError(t, err)

	t.Run("should pick the article body and drop the chrome", func(t *testing.T) {
		assert.Contains(t, res.TextContent, "quick brown fox")
		assert.NotContains(t, res.TextContent, "Home")
		assert.NotContains(t, res.TextContent, "Copyright")
		assert.GreaterOrEqual(t, res.Length, defaultCharThreshold)
	})

	t.Run("should drop the site suffix from the title", func(t *testing.T) {
		assert.Equal(t, "Article Name", res.Title)
	})

	t.Run("should collect the metadata", func(t *testing.T) {
		assert.Equal(t, "Jane Doe", res.Byline)
		assert.Equal(t, "Example Site", res.SiteName)
		assert.Equal(t, "A short description of the article.", res.Excerpt)
		assert.Equal(t, "2024-03-05T10:00:00Z", res.PublishedTime)
		assert.Equal(t, "en", res.Lang)
		assert.Equal(t, "ltr", res.Dir)
	})

	t.Run("should absolutize relative links", func(t *testing.T) {
		assert.Contains(t, res.Content, `href="http://fakehost/archive"`)
	})

	t.Run("should not repeat the title as a heading in the content", func(t *testing.T) {
		assert.NotContains(t, res.Content, "<h1")
	})
}

func TestExtractIsDeterministic(t *testing.T) {
	first, err := Extract(articlePage(), pageURI)
	require.NoError(t, err)
	second, err := Extract(articlePage(), pageURI)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
	assert.Equal(t, gohtml.Format(first.Content), gohtml.Format(second.Content))
}

func TestExtractFailures(t *testing.T) {

	t.Run("should fail typed on empty input", func(t *testing.T) {
		_, err := Extract("   ", pageURI)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoRootElement))
	})

	t.Run("should reject a page holding only navigation and footer", func(t *testing.T) {
		markup := `<html><body>
<nav role="navigation"><ul><li><a href="/">Home</a></li><li><a href="/about">About</a></li></ul></nav>
<footer>Copyright 2024, some site, all rights reserved</footer>
</body></html>`

		_, err := Extract(markup, pageURI)
		require.Error(t, err)

		var extErr *ExtractionError
		require.True(t, errors.As(err, &extErr))
		assert.True(t, errors.Is(err, ErrBelowThreshold) || errors.Is(err, ErrNoCandidates))
	})

	t.Run("should report how close the best attempt came", func(t *testing.T) {
		short := `<html><body><div class="article-content">
<p>A single short paragraph, with some commas, but nowhere near enough text to count as an article.</p>
</div></body></html>`

		_, err := Extract(short, pageURI)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrBelowThreshold))

		var extErr *ExtractionError
		require.True(t, errors.As(err, &extErr))
		assert.Greater(t, extErr.TextLength, 0)
		assert.Less(t, extErr.TextLength, defaultCharThreshold)
	})

	t.Run("should fail on pathological nesting", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < maxParseDepth*2; i++ {
			sb.WriteString("<div>")
		}
		sb.WriteString("deep text")

		_, err := Extract(sb.String(), pageURI)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooDeep))
	})

	t.Run("should stop when the budget runs out", func(t *testing.T) {
		_, err := Extract(articlePage(), pageURI, Budget(time.Nanosecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBudgetExceeded))
	})
}

func TestExtractOptions(t *testing.T) {

	t.Run("should accept short articles with a lowered threshold", func(t *testing.T) {
		short := `<html><body><div class="article-content">` + longParagraphs(1) + `</div></body></html>`

		res, err := Extract(short, pageURI, CharThreshold(100))
		require.NoError(t, err)
		assert.Contains(t, res.TextContent, "quick brown fox")
		assert.GreaterOrEqual(t, res.Length, 100)
	})

	t.Run("should keep only preserved classes", func(t *testing.T) {
		markup := `<html><body><div class="content sidebar">` + longParagraphs(4) + `</div></body></html>`

		res, err := Extract(markup, pageURI, ClassesToPreserve("content"))
		require.NoError(t, err)
		assert.Contains(t, res.Content, `class="content"`)
		assert.NotContains(t, res.Content, "sidebar")
	})

	t.Run("should keep every class when asked to", func(t *testing.T) {
		markup := `<html><body><div class="content sidebar">` + longParagraphs(4) + `</div></body></html>`

		res, err := Extract(markup, pageURI, KeepClasses(true))
		require.NoError(t, err)
		assert.Contains(t, res.Content, "sidebar")
	})

	t.Run("should run the content through a custom serializer", func(t *testing.T) {
		plain, err := Extract(articlePage(), pageURI)
		require.NoError(t, err)

		res, err := Extract(articlePage(), pageURI, Serializer(gohtml.Format))
		require.NoError(t, err)
		assert.Equal(t, gohtml.Format(plain.Content), res.Content)
		assert.NotEqual(t, plain.Content, res.Content)
	})

	t.Run("should skip structured data when disabled", func(t *testing.T) {
		markup := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Article","name":"Structured Title"}</script>
<title>Plain Title</title>
</head><body><div class="article-content">` + longParagraphs(4) + `</div></body></html>`

		res, err := Extract(markup, pageURI, DisableJSONLD(true))
		require.NoError(t, err)
		assert.Equal(t, "Plain Title", res.Title)

		res, err = Extract(markup, pageURI)
		require.NoError(t, err)
		assert.Equal(t, "Structured Title", res.Title)
	})
}

func TestCleanConditionally(t *testing.T) {
	// One comma-free paragraph where roughly a third of the text sits
	// inside an outbound link.
	markup := `<html><body><section><div><p>Some plain filler words that pad this paragraph out to a reasonable length without a single break <a href="/more">follow this link for many more related stories</a></p></div></section></body></html>`

	t.Run("should drop link-heavy blocks by default", func(t *testing.T) {
		e := newTestExtractor(t, markup)
		e.cleanConditionally(e.doc.body, "div")
		assert.Empty(t, e.doc.getElementsByTagName("div"))
	})

	t.Run("should tolerate more links with a raised modifier", func(t *testing.T) {
		e := newTestExtractor(t, markup)
		e.opts.linkDensityModifier = 0.5
		e.cleanConditionally(e.doc.body, "div")
		assert.Len(t, e.doc.getElementsByTagName("div"), 1)
	})
}

func TestLinkDensity(t *testing.T) {
	doc := parseDoc(t, `<body><p>aaaaaaaaaa<a href="#x">bbbbb</a></p></body>`, "")
	e := &extractor{opts: defaultOpts(), log: loggerFor(defaultOpts())}

	p := doc.getElementsByTagName("p")[0]
	// Hash links count at 0.3 of their weight: 5*0.3 over 15 chars.
	assert.InDelta(t, 0.1, e.getLinkDensity(p), 0.001)

	doc = parseDoc(t, `<body><p>aaaaaaaaaa<a href="/out">bbbbb</a></p></body>`, "")
	p = doc.getElementsByTagName("p")[0]
	assert.InDelta(t, float64(5)/15, e.getLinkDensity(p), 0.001)
}

func TestClassWeight(t *testing.T) {
	e := &extractor{opts: defaultOpts(), log: loggerFor(defaultOpts()), flags: flagWeightClasses}

	weightOf := func(markup string) float64 {
		doc := parseDoc(t, markup, "")
		return e.getClassWeight(doc.body.firstElementChild())
	}

	assert.Equal(t, 25.0, weightOf(`<body><div class="article">x</div></body>`))
	assert.Equal(t, -25.0, weightOf(`<body><div class="sidebar">x</div></body>`))
	assert.Equal(t, 0.0, weightOf(`<body><div class="content sidebar">x</div></body>`))
	assert.Equal(t, -50.0, weightOf(`<body><div class="promo" id="footer">x</div></body>`))

	// With the flag relaxed the weight never biases scoring.
	e.removeFlag(flagWeightClasses)
	assert.Equal(t, 0.0, weightOf(`<body><div class="sidebar">x</div></body>`))
}

func TestTextSimilarity(t *testing.T) {
	e := &extractor{}

	assert.InDelta(t, 1.0, e.textSimilarity("Article Name", "article name"), 0.001)
	assert.InDelta(t, 0.0, e.textSimilarity("Article Name", "unrelated words"), 0.001)
	assert.Greater(t, e.textSimilarity("Article Name - Site", "Article Name"), 0.75)
}
