package readably

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	flagStripUnlikelys     = 0x1
	flagWeightClasses      = 0x2
	flagCleanConditionally = 0x4
)

// Result is the article record produced by a successful extraction. All
// fields are best-effort; an empty field means "not determined".
type Result struct {
	// article title
	Title string `json:"title,omitempty"`
	// sanitized markup of the article body
	Content string `json:"content,omitempty"`
	// text content of the article, with all markup removed
	TextContent string `json:"textContent,omitempty"`
	// length of the text content, in runes
	Length int `json:"length,omitempty"`
	// article description, or short excerpt from the content
	Excerpt string `json:"excerpt,omitempty"`
	// author metadata
	Byline string `json:"byline,omitempty"`
	// content direction, "ltr" or "rtl"
	Dir string `json:"dir,omitempty"`
	// name of the site
	SiteName string `json:"siteName,omitempty"`
	// content language
	Lang string `json:"lang,omitempty"`
	// published time
	PublishedTime string `json:"publishedTime,omitempty"`
}

// extractor holds the scratch state of one run. Nothing in here outlives
// the call, so concurrent extractions never share state.
type extractor struct {
	opts  *Options
	log   *slog.Logger
	bdg   *budget
	doc   *node
	flags int

	articleTitle    string
	articleByline   string
	articleDir      string
	articleSiteName string
	articleLang     string

	// candidate scores for this run, keyed by element
	scores map[*node]float64
	// data-vs-layout table decisions for this run
	dataTables map[*node]bool

	attempts []attempt
}

type attempt struct {
	articleContent *node
	textLength     int
}

// Extract runs the full pipeline on the given markup: lenient parse,
// metadata extraction, candidate scoring, selection, and sanitization.
// uri is used only to absolutize relative links and media sources.
//
// Failures are typed: *ParseError for structural problems, *ExtractionError
// when no acceptable article exists, ErrBudgetExceeded when the wall-clock
// budget runs out. A failed call returns a nil Result.
func Extract(markup, uri string, opts ...Option) (*Result, error) {
	options := defaultOpts()
	for _, opt := range opts {
		opt(options)
	}

	if strings.TrimSpace(markup) == "" {
		return nil, &ParseError{Reason: ErrNoRootElement, Detail: "empty input"}
	}

	e := &extractor{
		opts:       options,
		log:        loggerFor(options),
		bdg:        newBudget(options.budget),
		flags:      flagStripUnlikelys | flagWeightClasses | flagCleanConditionally,
		scores:     make(map[*node]float64),
		dataTables: make(map[*node]bool),
	}
	return e.run(markup, uri)
}

func (e *extractor) run(markup, uri string) (*Result, error) {
	doc, err := newParser(e.opts).parse(markup, uri)
	if err != nil {
		return nil, err
	}
	e.doc = doc

	// First budget checkpoint: the tree is built.
	if err := e.bdg.check(); err != nil {
		return nil, err
	}

	e.unwrapNoscriptImages(doc)

	// Structured data has to be read before scripts are stripped.
	var jsonLd *metadata
	if !e.opts.disableJSONLD {
		jsonLd = e.getJSONLD(doc)
	}

	e.removeScripts(doc)
	e.prepDocument()

	meta := e.getArticleMetadata(jsonLd)
	e.articleTitle = meta.title

	articleContent, err := e.grabArticle()
	if err != nil {
		return nil, err
	}
	e.log.Debug("grabbed article", "html", articleContent.innerHTML())

	// Last checkpoint before serialization work.
	if err := e.bdg.check(); err != nil {
		return nil, err
	}

	e.postProcessContent(articleContent)

	// Without an excerpt in the metadata, preview the first paragraph.
	if meta.excerpt == "" {
		if paragraphs := articleContent.getElementsByTagName("p"); len(paragraphs) > 0 {
			meta.excerpt = strings.TrimSpace(paragraphs[0].textContent())
		}
	}

	htmlContent := articleContent.innerHTML()
	if e.opts.serializer != nil {
		htmlContent = e.opts.serializer(htmlContent)
	}
	textContent := articleContent.textContent()

	// Direction resolution may detect and fill in a missing language.
	dir := e.resolveDirection(textContent)

	return &Result{
		Title:         e.articleTitle,
		Byline:        anyOf(meta.byline, e.articleByline),
		Dir:           dir,
		Lang:          e.articleLang,
		Content:       htmlContent,
		TextContent:   textContent,
		Length:        utf8.RuneCountInString(textContent),
		Excerpt:       meta.excerpt,
		SiteName:      anyOf(meta.siteName, e.articleSiteName),
		PublishedTime: normalizePublishedTime(meta.publishedTime),
	}, nil
}

func (e *extractor) flagIsActive(flag int) bool {
	return e.flags&flag > 0
}

func (e *extractor) removeFlag(flag int) {
	e.flags = e.flags & ^flag
}

// Shared traversal helpers.

// removeNodes removes every node in the list for which filterFn returns
// true; a nil filter removes them all.
func (e *extractor) removeNodes(nodeList []*node, filterFn func(n *node) bool) {
	for i := len(nodeList) - 1; i >= 0; i-- {
		n := nodeList[i]
		if n.parent == nil {
			continue
		}
		if filterFn == nil || filterFn(n) {
			if _, err := n.parent.removeChild(n); err != nil {
				e.log.Error("cannot remove child", slog.String("err", err.Error()))
			}
		}
	}
}

func (e *extractor) replaceNodeTags(nodeList []*node, newTagName string) {
	for _, n := range nodeList {
		e.setNodeTag(n, newTagName)
	}
}

func (e *extractor) setNodeTag(n *node, tag string) *node {
	n.localName = strings.ToLower(tag)
	n.tag = strings.ToUpper(tag)
	return n
}

func (e *extractor) someNode(nodeList []*node, fn func(n *node) bool) bool {
	for _, n := range nodeList {
		if fn(n) {
			return true
		}
	}
	return false
}

func (e *extractor) everyNode(nodeList []*node, fn func(n *node) bool) bool {
	for _, n := range nodeList {
		if !fn(n) {
			return false
		}
	}
	return true
}

func (e *extractor) concatNodeLists(nodeLists ...[]*node) []*node {
	ret := make([]*node, 0)
	for _, list := range nodeLists {
		ret = append(ret, list...)
	}
	return ret
}

func (e *extractor) getAllNodesWithTag(n *node, tagNames ...string) []*node {
	nodes := make([]*node, 0)
	for _, tag := range tagNames {
		nodes = append(nodes, n.getElementsByTagName(tag)...)
	}
	return nodes
}

// getNextNode traverses depth-first. With ignoreSelfAndKids the node and
// its subtree are skipped, which lets callers remove it while iterating.
func (e *extractor) getNextNode(n *node, ignoreSelfAndKids bool) *node {
	if !ignoreSelfAndKids && n.firstElementChild() != nil {
		return n.firstElementChild()
	}
	if n.nextElement != nil {
		return n.nextElement
	}
	n = n.parent
	for n != nil && n.nextElement == nil {
		n = n.parent
	}
	if n != nil {
		return n.nextElement
	}
	return nil
}

func (e *extractor) removeAndGetNext(n *node) *node {
	next := e.getNextNode(n, true)
	if n.parent != nil {
		if _, err := n.parent.removeChild(n); err != nil {
			e.log.Error("cannot remove child", slog.String("err", err.Error()))
		}
	}
	return next
}

func (e *extractor) getNodeAncestors(n *node, maxDepth int) []*node {
	var i int
	var ancestors []*node
	for n.parent != nil {
		if n.parent.kind != elementNode {
			break
		}
		ancestors = append(ancestors, n.parent)
		if i++; i == maxDepth {
			break
		}
		n = n.parent
	}
	return ancestors
}

// innerText returns trimmed text content, optionally with internal
// whitespace runs collapsed.
func (e *extractor) innerText(n *node, normalizeSpaces bool) string {
	text := strings.TrimSpace(n.textContent())
	if normalizeSpaces {
		return normalize.ReplaceAllString(text, " ")
	}
	return text
}

func (e *extractor) getCharCount(n *node, s string) int {
	return len(strings.Split(e.innerText(n, true), s)) - 1
}

// getLinkDensity is the amount of text inside links divided by the total
// text in the node. In-page hash links count reduced.
func (e *extractor) getLinkDensity(n *node) float64 {
	textLength := utf8.RuneCountInString(e.innerText(n, true))
	if textLength == 0 {
		return 0
	}

	var linkLength float64
	for _, link := range n.getElementsByTagName("a") {
		href := link.getAttribute("href")
		coefficient := 1.0
		if href != "" && hashUrl.MatchString(href) {
			coefficient = 0.3
		}
		linkLength += float64(utf8.RuneCountInString(e.innerText(link, true))) * coefficient
	}

	return linkLength / float64(textLength)
}

// getClassWeight scores an element's class/id against the positive and
// negative signal patterns.
func (e *extractor) getClassWeight(n *node) float64 {
	if !e.flagIsActive(flagWeightClasses) {
		return 0
	}

	weight := 0

	if class := n.class(); class != "" {
		if negative.MatchString(class) {
			weight -= 25
		}
		if positive.MatchString(class) {
			weight += 25
		}
	}

	if id := n.id(); id != "" {
		if negative.MatchString(id) {
			weight -= 25
		}
		if positive.MatchString(id) {
			weight += 25
		}
	}

	return float64(weight)
}

func (e *extractor) getTextDensity(n *node, tags ...string) float64 {
	textLength := len(e.innerText(n, true))
	if textLength == 0 {
		return 0
	}

	childrenLength := 0
	for _, child := range e.getAllNodesWithTag(n, tags...) {
		childrenLength += len(e.innerText(child, true))
	}
	return float64(childrenLength) / float64(textLength)
}

func (e *extractor) hasAncestorTag(n *node, tagName string, maxDepth int, filterFn func(*node) bool) bool {
	tagName = strings.ToUpper(tagName)
	depth := 0
	for n.parent != nil {
		if maxDepth > 0 && depth > maxDepth {
			return false
		}
		if n.parent.tag == tagName && (filterFn == nil || filterFn(n.parent)) {
			return true
		}
		n = n.parent
		depth++
	}
	return false
}

// textSimilarity compares the second text to the first:
// 1 = same text, 0 = completely different. Token-overlap based.
func (e *extractor) textSimilarity(textA, textB string) float64 {
	tokensA := tokenize.Split(strings.ToLower(textA), -1)
	tokensB := tokenize.Split(strings.ToLower(textB), -1)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	var uniqTokensB []string
	for _, t := range tokensB {
		if t != "" && !contains(tokensA, t) {
			uniqTokensB = append(uniqTokensB, t)
		}
	}
	distanceB := float64(len(strings.Join(uniqTokensB, " "))) / float64(len(strings.Join(tokensB, " ")))
	return 1 - distanceB
}

func contains(strs []string, s string) bool {
	for _, str := range strs {
		if str == s {
			return true
		}
	}
	return false
}

func (e *extractor) isWhitespaceNode(n *node) bool {
	return (n.kind == textNode && len(strings.TrimSpace(n.data)) == 0) ||
		(n.kind == elementNode && n.tag == "BR")
}

func isProbablyVisible(n *node) bool {
	return n.styleProperty("display") != "none" &&
		n.styleProperty("visibility") != "hidden" &&
		!n.hasAttribute("hidden") &&
		(n.getAttribute("aria-hidden") != "true" ||
			strings.Contains(n.class(), "fallback-image"))
}
