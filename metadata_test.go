package readably

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T, markup string) *extractor {
	t.Helper()
	opts := defaultOpts()
	e := &extractor{
		opts:       opts,
		log:        loggerFor(opts),
		bdg:        newBudget(opts.budget),
		flags:      flagStripUnlikelys | flagWeightClasses | flagCleanConditionally,
		scores:     make(map[*node]float64),
		dataTables: make(map[*node]bool),
	}
	doc, err := newParser(opts).parse(markup, pageURI)
	require.NoError(t, err)
	e.doc = doc
	return e
}

func TestGetArticleTitle(t *testing.T) {

	testCases := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "separator suffix dropped when a heading confirms it",
			markup: `<html><head><title>Article Name - Example Site</title></head><body><h1>Article Name</h1></body></html>`,
			want:   "Article Name",
		},
		{
			name:   "separator suffix dropped on long titles",
			markup: `<html><head><title>The Five Word Article Name - Example Site</title></head><body></body></html>`,
			want:   "The Five Word Article Name",
		},
		{
			name:   "short unconfirmed titles stay whole",
			markup: `<html><head><title>Tiny - Site</title></head><body></body></html>`,
			want:   "Tiny - Site",
		},
		{
			name:   "very short document titles fall back to a single h1",
			markup: `<html><head><title>x</title></head><body><h1>The Actual Headline Of The Piece</h1></body></html>`,
			want:   "The Actual Headline Of The Piece",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestExtractor(t, tc.markup)
			assert.Equal(t, tc.want, e.getArticleTitle())
		})
	}
}

func TestGetJSONLD(t *testing.T) {

	t.Run("should read article metadata from a schema.org block", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head><script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "NewsArticle",
  "name": "The Structured Title",
  "author": {"@type": "Person", "name": "Jane Doe"},
  "publisher": {"@type": "Organization", "name": "Example Site"},
  "description": "A structured description.",
  "datePublished": "2024-03-05T10:00:00Z"
}
</script></head><body></body></html>`)

		meta := e.getJSONLD(e.doc)
		require.NotNil(t, meta)
		assert.Equal(t, "The Structured Title", meta.title)
		assert.Equal(t, "Jane Doe", meta.byline)
		assert.Equal(t, "Example Site", meta.siteName)
		assert.Equal(t, "A structured description.", meta.excerpt)
		assert.Equal(t, "2024-03-05T10:00:00Z", meta.publishedTime)
	})

	t.Run("should join multiple authors", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head><script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Article", "headline": "T",
 "author": [{"name": "Jane Doe"}, {"name": "John Roe"}]}
</script></head><body></body></html>`)

		meta := e.getJSONLD(e.doc)
		require.NotNil(t, meta)
		assert.Equal(t, "Jane Doe, John Roe", meta.byline)
	})

	t.Run("should find the article inside a graph", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head><script type="application/ld+json">
{"@context": "https://schema.org",
 "@graph": [
   {"@type": "WebSite", "name": "Example Site"},
   {"@type": "Article", "headline": "Graphed Title"}
 ]}
</script></head><body></body></html>`)

		meta := e.getJSONLD(e.doc)
		require.NotNil(t, meta)
		assert.Equal(t, "Graphed Title", meta.title)
	})

	t.Run("should ignore non schema.org blocks and non articles", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head>
<script type="application/ld+json">{"@context": "https://example.com/vocab", "@type": "Article", "name": "Nope"}</script>
<script type="application/ld+json">{"@context": "https://schema.org", "@type": "Recipe", "name": "Nope"}</script>
</head><body></body></html>`)

		assert.Nil(t, e.getJSONLD(e.doc))
	})
}

func TestGetArticleMetadata(t *testing.T) {

	t.Run("should harvest the meta tag conventions", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="OG Title"/>
<meta name="dc:creator" content="Jane Doe"/>
<meta name="twitter:description" content="Tweeted description"/>
<meta property="og:site_name" content="Example Site"/>
<meta property="article:published_time" content="2024-03-05T10:00:00Z"/>
</head><body></body></html>`)

		meta := e.getArticleMetadata(nil)
		assert.Equal(t, "OG Title", meta.title)
		assert.Equal(t, "Jane Doe", meta.byline)
		assert.Equal(t, "Tweeted description", meta.excerpt)
		assert.Equal(t, "Example Site", meta.siteName)
		assert.Equal(t, "2024-03-05T10:00:00Z", meta.publishedTime)
	})

	t.Run("should let structured data win over meta tags", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head>
<meta property="og:title" content="OG Title"/>
</head><body></body></html>`)

		meta := e.getArticleMetadata(&metadata{title: "Structured Title"})
		assert.Equal(t, "Structured Title", meta.title)
	})

	t.Run("should unescape entities in meta values", func(t *testing.T) {
		e := newTestExtractor(t, `<html><head>
<meta property="og:title" content="Dre&#xe9; &amp; friends"/>
</head><body></body></html>`)

		meta := e.getArticleMetadata(nil)
		assert.Equal(t, "Dreé & friends", meta.title)
	})
}

func TestCheckByline(t *testing.T) {

	t.Run("should pick up rel=author", func(t *testing.T) {
		e := newTestExtractor(t, `<html><body><span rel="author">Jane Doe</span></body></html>`)
		span := e.doc.getElementsByTagName("span")[0]

		assert.True(t, e.checkByline(span, ""))
		assert.Equal(t, "Jane Doe", e.articleByline)
	})

	t.Run("should pick up byline-looking classes", func(t *testing.T) {
		e := newTestExtractor(t, `<html><body><p class="byline">By John Roe</p></body></html>`)
		p := e.doc.getElementsByTagName("p")[0]

		assert.True(t, e.checkByline(p, p.class()+" "+p.id()))
		assert.Equal(t, "By John Roe", e.articleByline)
	})

	t.Run("should reject implausible byline lengths", func(t *testing.T) {
		long := `<p class="byline">This alleged byline rambles on for far longer than any plausible ` +
			`author attribution ever would, listing titles and accolades without end</p>`
		e := newTestExtractor(t, "<html><body>"+long+"</body></html>")
		p := e.doc.getElementsByTagName("p")[0]

		assert.False(t, e.checkByline(p, p.class()))
		assert.Empty(t, e.articleByline)
	})
}

func TestNormalizePublishedTime(t *testing.T) {

	testCases := []struct {
		raw  string
		want string
	}{
		{raw: "2024-03-05T10:00:00Z", want: "2024-03-05T10:00:00Z"},
		{raw: "March 5, 2024", want: "2024-03-05T00:00:00Z"},
		{raw: "not a date", want: "not a date"},
		{raw: "   ", want: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, normalizePublishedTime(tc.raw))
	}
}
