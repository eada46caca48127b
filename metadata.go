package readably

import (
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type metadata struct {
	title         string
	byline        string
	excerpt       string
	siteName      string
	publishedTime string
}

// getArticleTitle derives the title from the document title element,
// dropping site-name suffixes and falling back to headings. A near match
// with an H1/H2 keeps the shared part; short or overly long titles fall
// back to the single H1 when there is one.
func (e *extractor) getArticleTitle() string {
	doc := e.doc
	curTitle := strings.TrimSpace(doc.titleText)
	origTitle := curTitle

	if curTitle == "" {
		if titles := doc.getElementsByTagName("title"); len(titles) != 0 {
			curTitle = e.innerText(titles[0], true)
			origTitle = curTitle
		}
	}

	var titleHadHierarchicalSeparators bool
	wordCount := func(s string) int {
		return len(multipleWhitespaces.Split(s, -1))
	}

	if titleFinalPart.MatchString(curTitle) {
		// There's a separator in the title: remove the final part.
		titleHadHierarchicalSeparators = titleSeparators.MatchString(curTitle)
		submatches := otherTitleSeparators.FindAllStringSubmatch(origTitle, -1)
		if len(submatches) != 0 && len(submatches[0]) > 1 {
			curTitle = submatches[0][1]
		}
		// If the resulting title is too short (3 words or fewer), remove
		// the first part instead.
		if wordCount(curTitle) < 3 {
			if m := titleFirstPart.FindStringSubmatch(origTitle); len(m) > 1 {
				curTitle = strings.TrimSpace(m[1])
			}
		}
	} else if strings.Contains(curTitle, ": ") {
		// Check if we have a heading containing this exact string, so we
		// could assume it's the full title.
		headings := e.concatNodeLists(
			doc.getElementsByTagName("h1"),
			doc.getElementsByTagName("h2"),
		)
		trimmedTitle := strings.TrimSpace(curTitle)
		match := e.someNode(headings, func(heading *node) bool {
			return strings.TrimSpace(heading.textContent()) == trimmedTitle
		})

		// If we don't, extract the title out of the original title string.
		if !match {
			curTitle = origTitle[strings.LastIndex(origTitle, ":")+1:]
		}

		// If the title is now too short, try the first colon instead:
		if wordCount(curTitle) < 3 {
			curTitle = origTitle[strings.Index(origTitle, ":")+1:]
			// But if we have too many words before the colon there's something
			// weird with the titles and the H tags, use the original title.
		} else if wordCount(origTitle[:strings.Index(origTitle, ":")]) > 5 {
			curTitle = origTitle
		}
	} else if len([]rune(curTitle)) > 150 || len([]rune(curTitle)) < 15 {
		if hOnes := doc.getElementsByTagName("h1"); len(hOnes) == 1 {
			curTitle = e.innerText(hOnes[0], true)
		}
	}

	curTitle = normalize.ReplaceAllString(strings.TrimSpace(curTitle), " ")

	// A heading that repeats the de-suffixed title confirms the split, no
	// matter how short it came out.
	if curTitle != "" && curTitle != origTitle {
		headings := e.concatNodeLists(
			doc.getElementsByTagName("h1"),
			doc.getElementsByTagName("h2"),
		)
		confirmed := e.someNode(headings, func(heading *node) bool {
			return e.innerText(heading, true) == curTitle
		})
		if confirmed {
			return curTitle
		}
	}

	// With 4 words or fewer as title and either no hierarchical separators
	// (\, /, > or ») in the original title or a word count reduced by more
	// than one, use the original title.
	curTitleWordCount := wordCount(curTitle)
	if curTitleWordCount <= 4 &&
		(!titleHadHierarchicalSeparators || curTitleWordCount != wordCount(separators.ReplaceAllString(origTitle, ""))) {
		curTitle = origTitle
	}
	return curTitle
}

// getJSONLD pulls metadata from a JSON-LD block. Only schema.org objects
// of type Article or its subtypes are considered.
func (e *extractor) getJSONLD(doc *node) *metadata {

	var meta *metadata

	for _, script := range e.getAllNodesWithTag(doc, "script") {
		if meta != nil || script.getAttribute("type") != "application/ld+json" {
			continue
		}

		content := cdata.ReplaceAllString(script.textContent(), "")
		var parsed map[string]any
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			e.log.Debug("cannot unmarshal JSON-LD content", "err", err)
			continue
		}

		ctx, ok := parsed["@context"].(string)
		if !ok || !schemaUrl.MatchString(ctx) {
			continue
		}

		if _, typeFound := parsed["@type"]; !typeFound {
			if graph, ok := parsed["@graph"].([]any); ok {
				for _, el := range graph {
					elMap, ok := el.(map[string]any)
					if !ok {
						continue
					}
					if typeStr, ok := elMap["@type"].(string); ok && jsonLdArticleTypes.MatchString(typeStr) {
						parsed = elMap
						break
					}
				}
			}
		}

		typeStr, ok := parsed["@type"].(string)
		if !ok || !jsonLdArticleTypes.MatchString(typeStr) {
			continue
		}

		meta = &metadata{}

		name, nameOK := parsed["name"].(string)
		headline, headlineOK := parsed["headline"].(string)
		if nameOK && headlineOK && name != headline {
			// Both name and headline are present and differ. Some sites put
			// their own name into "name" and the article title into
			// "headline", so prefer whichever closely matches the document
			// title, defaulting to "name".
			title := e.getArticleTitle()
			nameMatches := e.textSimilarity(name, title) > 0.75
			headlineMatches := e.textSimilarity(headline, title) > 0.75

			if headlineMatches && !nameMatches {
				meta.title = headline
			} else {
				meta.title = name
			}
		} else if nameOK {
			meta.title = strings.TrimSpace(name)
		} else if headlineOK {
			meta.title = strings.TrimSpace(headline)
		}

		switch author := parsed["author"].(type) {
		case map[string]any:
			if authorName, ok := author["name"].(string); ok {
				meta.byline = strings.TrimSpace(authorName)
			}
		case []any:
			var authorNames []string
			for _, a := range author {
				if obj, ok := a.(map[string]any); ok {
					if authorName, ok := obj["name"].(string); ok {
						authorNames = append(authorNames, strings.TrimSpace(authorName))
					}
				}
			}
			meta.byline = strings.Join(authorNames, ", ")
		}

		if descr, ok := parsed["description"].(string); ok {
			meta.excerpt = strings.TrimSpace(descr)
		}
		if publisher, ok := parsed["publisher"].(map[string]any); ok {
			if publisherName, ok := publisher["name"].(string); ok {
				meta.siteName = strings.TrimSpace(publisherName)
			}
		}
		if datePublished, ok := parsed["datePublished"].(string); ok {
			meta.publishedTime = strings.TrimSpace(datePublished)
		}
	}
	return meta
}

// getArticleMetadata gathers the per-field best value: structured data
// first, then the meta-tag conventions, then in-document heuristics.
func (e *extractor) getArticleMetadata(jsonld *metadata) *metadata {

	meta, values := &metadata{}, make(map[string]string)

	for _, element := range e.doc.getElementsByTagName("meta") {
		elementName := element.getAttribute("name")
		elementProperty := element.getAttribute("property")
		content := element.getAttribute("content")
		if content == "" {
			continue
		}

		var matched bool
		if elementProperty != "" {
			if m := propertyPattern.FindAllString(elementProperty, -1); len(m) != 0 {
				matched = true
				// Lowercase with whitespace removed, so lookups below match.
				name := singleWhitespace.ReplaceAllString(strings.ToLower(m[0]), "")
				values[name] = strings.TrimSpace(content)
			}
		}

		if !matched && elementName != "" && namePattern.MatchString(elementName) {
			// Lowercase, no whitespace, dots converted to colons.
			name := singleWhitespace.ReplaceAllString(strings.ToLower(elementName), "")
			name = singleDot.ReplaceAllString(name, ":")
			values[name] = strings.TrimSpace(content)
		}
	}

	if jsonld == nil {
		jsonld = &metadata{}
	}

	meta.title = anyOf(jsonld.title,
		values["dc:title"],
		values["dcterm:title"],
		values["og:title"],
		values["weibo:article:title"],
		values["weibo:webpage:title"],
		values["title"],
		values["twitter:title"])

	if meta.title == "" {
		meta.title = e.getArticleTitle()
	}

	meta.byline = anyOf(jsonld.byline,
		values["dc:creator"],
		values["dcterm:creator"],
		values["author"])

	meta.excerpt = anyOf(jsonld.excerpt,
		values["dc:description"],
		values["dcterm:description"],
		values["og:description"],
		values["weibo:article:description"],
		values["weibo:webpage:description"],
		values["description"],
		values["twitter:description"])

	meta.siteName = anyOf(jsonld.siteName,
		values["og:site_name"])

	meta.publishedTime = anyOf(jsonld.publishedTime,
		values["article:published_time"])

	// Meta values are often escaped with HTML entities.
	meta.title = html.UnescapeString(meta.title)
	meta.byline = html.UnescapeString(meta.byline)
	meta.excerpt = html.UnescapeString(meta.excerpt)
	meta.siteName = html.UnescapeString(meta.siteName)
	meta.publishedTime = html.UnescapeString(meta.publishedTime)

	return meta
}

// checkByline records a byline-looking node during the scoring walk.
func (e *extractor) checkByline(n *node, matchString string) bool {
	if e.articleByline != "" {
		return false
	}

	rel := n.getAttribute("rel")
	itemprop := n.getAttribute("itemprop")

	if (rel == "author" || strings.Contains(itemprop, "author") || byline.MatchString(matchString)) &&
		isValidByline(n.textContent()) {
		e.articleByline = strings.TrimSpace(n.textContent())
		return true
	}

	return false
}

// A byline is plausible between 1 and 100 chars.
func isValidByline(possibleByline string) bool {
	l := len([]rune(strings.TrimSpace(possibleByline)))
	return l > 0 && l < 100
}

// headerDuplicatesTitle reports an H1/H2 whose content is mostly the same
// as the article title.
func (e *extractor) headerDuplicatesTitle(n *node) bool {
	if n.tag != "H1" && n.tag != "H2" {
		return false
	}
	heading := e.innerText(n, false)
	return e.textSimilarity(e.articleTitle, heading) > 0.75
}

// normalizePublishedTime rewrites a recognizable timestamp as RFC 3339,
// keeping the raw value when it doesn't parse.
func normalizePublishedTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		return t.Format(time.RFC3339)
	}
	return raw
}
