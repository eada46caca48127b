/*
 * Copyright (c) 2010 Arc90 Inc
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package readably

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	presentationalAttributes = []string{"align", "background", "bgcolor", "border", "cellpadding", "cellspacing", "frame", "hspace", "rules", "style", "valign", "vspace"}

	deprecatedSizeAttributeElems = []string{"TABLE", "TH", "TD", "HR", "PRE"}

	dataTableDescendants = []string{"col", "colgroup", "tfoot", "thead", "th"}
)

// prepArticle cleans the selected content for presentation: strips
// presentational attributes, removes junk containers, normalizes headers
// and tables.
func (e *extractor) prepArticle(articleContent *node) {
	e.cleanStyles(articleContent)

	// Check for data tables before we continue, to avoid removing items in
	// those tables, which will often be isolated even though they're
	// visually linked to other content-ful elements (text, images, etc.).
	e.markDataTables(articleContent)

	e.fixLazyImages(articleContent)

	// Clean out junk from the article content.
	e.cleanConditionally(articleContent, "form")
	e.cleanConditionally(articleContent, "fieldset")
	e.clean(articleContent, "object")
	e.clean(articleContent, "embed")
	e.clean(articleContent, "footer")
	e.clean(articleContent, "link")
	e.clean(articleContent, "aside")

	// Clean out elements with little content that have "share" in their
	// id/class combinations from final top candidates, which means we don't
	// remove the top candidates even when they have "share".
	shareElementThreshold := defaultCharThreshold
	for _, topCandidate := range articleContent.children {
		e.cleanMatchedNodes(topCandidate, func(n *node, matchString string) bool {
			return shareElements.MatchString(matchString) &&
				utf8.RuneCountInString(n.textContent()) < shareElementThreshold
		})
	}

	e.clean(articleContent, "iframe")
	e.clean(articleContent, "input")
	e.clean(articleContent, "textarea")
	e.clean(articleContent, "select")
	e.clean(articleContent, "button")
	e.cleanHeaders(articleContent)

	// Do these last as the previous stuff may have removed junk that will
	// affect these.
	e.cleanConditionally(articleContent, "table")
	e.cleanConditionally(articleContent, "ul")
	e.cleanConditionally(articleContent, "div")

	// Replace H1 with H2 as H1 should be only title that is displayed
	// separately.
	e.replaceNodeTags(e.getAllNodesWithTag(articleContent, "h1"), "h2")

	// Remove extra paragraphs.
	e.removeNodes(e.getAllNodesWithTag(articleContent, "p"), func(paragraph *node) bool {
		imgCount := len(paragraph.getElementsByTagName("img"))
		embedCount := len(paragraph.getElementsByTagName("embed"))
		objectCount := len(paragraph.getElementsByTagName("object"))
		// At this point, nasty iframes have been removed, only embedded
		// video ones remain.
		iframeCount := len(paragraph.getElementsByTagName("iframe"))
		totalCount := imgCount + embedCount + objectCount + iframeCount
		return totalCount == 0 && e.innerText(paragraph, false) == ""
	})

	for _, br := range e.getAllNodesWithTag(articleContent, "br") {
		next := e.nextNonWhitespace(br.nextSibling)
		if next != nil && next.tag == "P" {
			br.parent.removeChild(br)
		}
	}

	// Remove single-cell tables.
	for _, table := range e.getAllNodesWithTag(articleContent, "table") {
		tbody := table
		if e.hasSingleTagInsideElement(table, "TBODY") {
			tbody = table.firstElementChild()
		}
		if e.hasSingleTagInsideElement(tbody, "TR") {
			row := tbody.firstElementChild()
			if e.hasSingleTagInsideElement(row, "TD") {
				cell := row.firstElementChild()
				tag := "DIV"
				if e.everyNode(cell.childNodes, e.isPhrasingContent) {
					tag = "P"
				}
				cell = e.setNodeTag(cell, tag)
				table.parent.replaceChild(cell, table)
			}
		}
	}
}

// cleanStyles removes the style attribute and deprecated presentational
// attributes on every element of the subtree. SVG subtrees are skipped.
func (e *extractor) cleanStyles(n *node) {
	if n == nil || n.localName == "svg" {
		return
	}

	for _, attrName := range presentationalAttributes {
		n.removeAttribute(attrName)
	}

	if slices.Contains(deprecatedSizeAttributeElems, n.tag) {
		n.removeAttribute("width")
		n.removeAttribute("height")
	}

	for cur := n.firstElementChild(); cur != nil; cur = cur.nextElement {
		e.cleanStyles(cur)
	}
}

// clean removes all elements of type tag, letting allowed videos through.
func (e *extractor) clean(n *node, tag string) {

	isEmbed := slices.Contains([]string{"object", "embed", "iframe"}, tag)

	e.removeNodes(e.getAllNodesWithTag(n, tag), func(element *node) bool {
		// Allow youtube and vimeo videos through as people usually want to
		// see those.
		if isEmbed {
			for _, a := range element.attrs {
				if e.opts.allowedVideoRegex.MatchString(a.value) {
					return false
				}
			}

			// For embed with <object> tag, check inner HTML as well.
			if element.tag == "OBJECT" && e.opts.allowedVideoRegex.MatchString(element.innerHTML()) {
				return false
			}
		}
		return true
	})
}

// getRowAndColumnCount reports how many rows and columns a table has,
// honoring rowspan and colspan.
func (e *extractor) getRowAndColumnCount(table *node) (int, int) {
	rows, columns := 0, 0
	for _, tr := range table.getElementsByTagName("tr") {
		rowspan, _ := strconv.Atoi(tr.getAttribute("rowspan"))
		if rowspan == 0 {
			rowspan = 1
		}
		rows += rowspan

		columnsInThisRow := 0
		for _, cell := range tr.getElementsByTagName("td") {
			colspan, _ := strconv.Atoi(cell.getAttribute("colspan"))
			if colspan == 0 {
				colspan = 1
			}
			columnsInThisRow += colspan
		}
		if columnsInThisRow > columns {
			columns = columnsInThisRow
		}
	}
	return rows, columns
}

// markDataTables classifies 'data' (as opposed to 'layout') tables, with
// similar checks as
// https://searchfox.org/mozilla-central/rev/f82d5c549f046cb64ce5602bfd894b7ae807c8f8/accessible/generic/TableAccessible.cpp#19
func (e *extractor) markDataTables(root *node) {

	for _, table := range root.getElementsByTagName("table") {
		if table.getAttribute("role") == "presentation" {
			e.dataTables[table] = false
			continue
		}

		if table.getAttribute("datatable") == "0" {
			e.dataTables[table] = false
			continue
		}

		if table.getAttribute("summary") != "" {
			e.dataTables[table] = true
			continue
		}

		if captions := table.getElementsByTagName("caption"); len(captions) > 0 && len(captions[0].childNodes) > 0 {
			e.dataTables[table] = true
			continue
		}

		// If the table has a descendant with any of these tags, consider a
		// data table.
		descendantExists := func(tag string) bool {
			return len(table.getElementsByTagName(tag)) != 0
		}
		if slices.ContainsFunc(dataTableDescendants, descendantExists) {
			e.log.Debug("data table because found data-y descendant")
			e.dataTables[table] = true
			continue
		}

		// Nested tables indicate a layout table.
		if len(table.getElementsByTagName("table")) > 0 {
			e.dataTables[table] = false
			continue
		}

		rows, columns := e.getRowAndColumnCount(table)
		if rows >= 10 || columns > 4 {
			e.dataTables[table] = true
			continue
		}
		// Now just go by size entirely.
		e.dataTables[table] = rows*columns > 10
	}
}

// fixLazyImages converts images and figures that have properties like
// data-src into images that can be loaded without JS.
func (e *extractor) fixLazyImages(root *node) {

	for _, elem := range e.getAllNodesWithTag(root, "img", "picture", "figure") {
		src := elem.getAttribute("src")

		// In some sites (e.g. Kotaku), they put a 1px square image as a
		// base64 data uri in the src attribute. So, here we check if the
		// data uri is too short, just might as well remove it.
		if src != "" && b64DataUrl.MatchString(src) {
			// Make sure it's not SVG, because SVG can have a meaningful
			// image in under 133 bytes.
			parts := b64DataUrl.FindAllStringSubmatch(src, -1)
			if parts[0][1] == "image/svg+xml" {
				continue
			}

			// Make sure this element has other attributes which contain an
			// image. If it doesn't, then this src is important and
			// shouldn't be removed.
			srcCouldBeRemoved := false
			for _, a := range elem.attrs {
				if a.name == "src" {
					continue
				}
				if imgExtensions.MatchString(a.value) {
					srcCouldBeRemoved = true
					break
				}
			}

			// An image under 100 bytes (or 133B after base64 encoding) is
			// too small, therefore it might be a placeholder image.
			if srcCouldBeRemoved {
				if loc := base64Starts.FindStringIndex(src); loc != nil {
					b64length := len(src) - (loc[0] + 7)
					if b64length < 133 {
						elem.removeAttribute("src")
						src = ""
					}
				}
			}
		}

		srcset := elem.getAttribute("srcset")
		// Also check for "null" to work around
		// https://github.com/jsdom/jsdom/issues/2580
		if (src != "" || (srcset != "" && srcset != "null")) && !strings.Contains(strings.ToLower(elem.class()), "lazy") {
			continue
		}

		for _, a := range elem.attrs {
			if a.name == "src" || a.name == "srcset" || a.name == "alt" {
				continue
			}
			var copyTo string
			if imgExtensionsWithSpacesAndNum.MatchString(a.value) {
				copyTo = "srcset"
			} else if imgExtensionsAmongText.MatchString(a.value) {
				copyTo = "src"
			}

			if copyTo == "" {
				continue
			}
			if elem.tag == "IMG" || elem.tag == "PICTURE" {
				// For an img or picture, set the attribute directly.
				elem.setAttribute(copyTo, a.value)
			} else if elem.tag == "FIGURE" && len(e.getAllNodesWithTag(elem, "img", "picture")) == 0 {
				// A <figure> without an image or picture gets one created
				// and placed inside it.
				img := newElement("img")
				img.setAttribute(copyTo, a.value)
				elem.appendChild(img)
			}
		}
	}
}

// cleanConditionally cleans an element of all tags of type tag if they look
// fishy. "Fishy" is an algorithm based on content length, classnames, link
// density, number of images and embeds, etc.
func (e *extractor) cleanConditionally(root *node, tag string) {
	if !e.flagIsActive(flagCleanConditionally) {
		return
	}

	e.removeNodes(e.getAllNodesWithTag(root, tag), func(n *node) bool {
		// First check if this node IS a data table, in which case don't
		// remove it.
		isDataTable := func(t *node) bool {
			return e.dataTables[t]
		}

		isList := tag == "ul" || tag == "ol"
		if !isList {
			listLength := 0
			for _, list := range e.getAllNodesWithTag(n, "ul", "ol") {
				listLength += len(e.innerText(list, true))
			}
			if total := len(e.innerText(n, true)); total > 0 {
				isList = float64(listLength)/float64(total) > 0.9
			}
		}

		if tag == "table" && isDataTable(n) {
			return false
		}

		// Next check if we're inside a data table, in which case don't
		// remove it either.
		if e.hasAncestorTag(n, "table", -1, isDataTable) {
			return false
		}

		if e.hasAncestorTag(n, "code", 3, nil) {
			return false
		}

		weight := e.getClassWeight(n)

		e.log.Debug("cleaning conditionally", "tag", n.tag, "class", n.class())

		if weight < 0 {
			return true
		}

		if e.getCharCount(n, ",") < 10 {
			// If there are not very many commas, and the number of
			// non-paragraph elements is more than paragraphs or other
			// ominous signs, remove the element.
			p := len(n.getElementsByTagName("p"))
			img := len(n.getElementsByTagName("img"))
			li := len(n.getElementsByTagName("li")) - 100
			input := len(n.getElementsByTagName("input"))
			headingDensity := e.getTextDensity(n, "h1", "h2", "h3", "h4", "h5", "h6")

			embedCount := 0
			for _, embed := range e.getAllNodesWithTag(n, "object", "embed", "iframe") {
				// An embed with an attribute matching the video regex is
				// kept, with the whole subtree.
				for _, a := range embed.attrs {
					if e.opts.allowedVideoRegex.MatchString(a.value) {
						return false
					}
				}

				// For embed with <object> tag, check inner HTML as well.
				if embed.tag == "OBJECT" && e.opts.allowedVideoRegex.MatchString(embed.innerHTML()) {
					return false
				}

				embedCount++
			}

			linkDensity := e.getLinkDensity(n)
			contentLength := utf8.RuneCountInString(e.innerText(n, true))

			haveToRemove := (img > 1 && float64(p)/float64(img) < 0.5 && !e.hasAncestorTag(n, "figure", 3, nil)) ||
				(!isList && li > p) ||
				(input > int(math.Floor(float64(p)/3.0))) ||
				(!isList && headingDensity < 0.9 && contentLength < 25 && (img == 0 || img > 2) && !e.hasAncestorTag(n, "figure", 3, nil)) ||
				(!isList && weight < 25 && linkDensity > 0.2+e.opts.linkDensityModifier) ||
				(weight >= 25 && linkDensity > 0.5+e.opts.linkDensityModifier) ||
				((embedCount == 1 && contentLength < 75) || embedCount > 1)

			// Allow simple lists of images to remain in pages.
			if isList && haveToRemove {
				for _, child := range n.children {
					// Don't filter in lists with li's that contain more
					// than one child.
					if len(child.children) > 1 {
						return haveToRemove
					}
				}
				// Only allow the list to remain if every li contains an
				// image.
				if liCount := len(n.getElementsByTagName("li")); img == liCount {
					return false
				}
			}
			return haveToRemove
		}
		return false
	})
}

// cleanMatchedNodes removes the elements under root that match the filter.
func (e *extractor) cleanMatchedNodes(root *node, filterFn func(*node, string) bool) {
	endOfSearchMarkerNode := e.getNextNode(root, true)
	next := e.getNextNode(root, false)
	for next != nil && next != endOfSearchMarkerNode {
		if filterFn(next, next.class()+" "+next.id()) {
			next = e.removeAndGetNext(next)
		} else {
			next = e.getNextNode(next, false)
		}
	}
}

// cleanHeaders removes spurious headers from the content.
func (e *extractor) cleanHeaders(n *node) {
	e.removeNodes(e.getAllNodesWithTag(n, "h1", "h2"), func(header *node) bool {
		shouldRemove := e.getClassWeight(header) < 0
		if shouldRemove {
			e.log.Debug("removing header with low class weight", "class", header.class())
		}
		return shouldRemove
	})
}

func (e *extractor) isSingleImage(n *node) bool {
	if n.tag == "IMG" {
		return true
	}
	if len(n.children) != 1 || strings.TrimSpace(n.textContent()) != "" {
		return false
	}
	return e.isSingleImage(n.children[0])
}

// unwrapNoscriptImages finds all <noscript> located after <img> nodes which
// contain only one <img> element, replaces the first image with the image
// from inside the <noscript> tag and removes the <noscript> tag. This
// improves the quality of the images used on some sites (e.g. Medium).
func (e *extractor) unwrapNoscriptImages(doc *node) {
	// Find img without source or attributes that might contain an image,
	// and remove it. This prevents a placeholder img from being replaced by
	// an img from a noscript in the next step.
	for _, img := range doc.getElementsByTagName("img") {
		containsImg := slices.ContainsFunc(img.attrs, func(a attribute) bool {
			switch a.name {
			case "src", "srcset", "data-src", "data-srcset":
				return true
			}
			return imgExtensions.MatchString(a.value)
		})

		if !containsImg && img.parent != nil {
			img.parent.removeChild(img)
		}
	}

	// Next find noscript and try to extract its image.
	for _, noscript := range doc.getElementsByTagName("noscript") {
		// Parse the content of noscript and make sure it only contains an
		// image.
		div := newElement("div")
		div.setInnerHTML(noscript.innerHTML())
		if !e.isSingleImage(div) {
			continue
		}

		// If noscript has a previous sibling and it only contains an image,
		// replace it with the noscript content, keeping old attributes that
		// might contain an image.
		prevElement := noscript.prevElement
		if prevElement != nil && e.isSingleImage(prevElement) {
			prevImg := prevElement
			if prevImg.tag != "IMG" {
				prevImg = prevElement.getElementsByTagName("img")[0]
			}

			newImg := div.getElementsByTagName("img")[0]
			for _, a := range prevImg.attrs {
				if a.value == "" {
					continue
				}

				if a.name == "src" || a.name == "srcset" || imgExtensions.MatchString(a.value) {
					if newImg.getAttribute(a.name) == a.value {
						continue
					}

					attrName := a.name
					if newImg.hasAttribute(attrName) {
						attrName = "data-old-" + attrName
					}
					newImg.setAttribute(attrName, a.value)
				}
			}

			noscript.parent.replaceChild(div.firstElementChild(), prevElement)
		}
	}
}

// removeScripts drops script tags from the document.
func (e *extractor) removeScripts(doc *node) {
	e.removeNodes(e.getAllNodesWithTag(doc, "script", "noscript"), nil)
}

// postProcessContent runs the post-process modifications to article
// content: absolute uris, container simplification, class stripping.
func (e *extractor) postProcessContent(articleContent *node) {
	// Extracted content cannot open relative uris, so convert them to
	// absolute ones.
	e.fixRelativeUris(articleContent)

	e.simplifyNestedElements(articleContent)

	if !e.opts.keepClasses {
		e.cleanClasses(articleContent)
	}
}

// toAbsoluteURI resolves uri against the document base. In-page hash links
// stay relative when the base matches the document URI.
func (e *extractor) toAbsoluteURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return uri
	}

	baseURI := e.doc.getBaseURI()
	if strings.HasPrefix(uri, "#") && baseURI == e.doc.uri {
		return uri
	}

	base, err := url.Parse(baseURI)
	if err != nil {
		return uri
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return base.ResolveReference(ref).String()
}

// fixRelativeUris converts each <a> and media uri in the given element to
// an absolute URI, ignoring #ref URIs.
func (e *extractor) fixRelativeUris(articleContent *node) {
	for _, link := range e.getAllNodesWithTag(articleContent, "a") {
		href := link.getAttribute("href")
		if href == "" {
			continue
		}
		// Remove links with javascript: URIs, since they won't work after
		// scripts have been removed from the page.
		if strings.HasPrefix(href, "javascript:") {
			if len(link.childNodes) == 1 && link.childNodes[0].kind == textNode {
				// A link with simple text content can be converted to a
				// text node.
				text := newText(link.textContent())
				link.parent.replaceChild(text, link)
			} else {
				// A link with multiple children keeps all of them.
				container := newElement("span")
				for link.firstChild() != nil {
					container.appendChild(link.firstChild())
				}
				link.parent.replaceChild(container, link)
			}
		} else {
			link.setAttribute("href", e.toAbsoluteURI(href))
		}
	}

	medias := e.getAllNodesWithTag(articleContent,
		"img", "picture", "figure", "video", "audio", "source",
	)
	for _, media := range medias {
		if src := media.getAttribute("src"); src != "" {
			media.setAttribute("src", e.toAbsoluteURI(src))
		}
		if poster := media.getAttribute("poster"); poster != "" {
			media.setAttribute("poster", e.toAbsoluteURI(poster))
		}
		if srcset := media.getAttribute("srcset"); srcset != "" {
			var newSrcset []string
			for _, submatch := range srcsetUrl.FindAllStringSubmatch(srcset, -1) {
				newSrcset = append(newSrcset, e.toAbsoluteURI(submatch[1])+submatch[2]+submatch[3])
			}
			if len(newSrcset) != 0 {
				media.setAttribute("srcset", strings.Join(newSrcset, " "))
			}
		}
	}
}

// simplifyNestedElements unwraps div and section elements that hold a
// single nested container and drops the empty ones.
func (e *extractor) simplifyNestedElements(articleContent *node) {
	n := articleContent
	for n != nil {
		if n.parent != nil && (n.tag == "DIV" || n.tag == "SECTION") && !strings.HasPrefix(n.id(), "readability") {
			if e.isElementWithoutContent(n) {
				n = e.removeAndGetNext(n)
				continue
			} else if e.hasSingleTagInsideElement(n, "DIV") || e.hasSingleTagInsideElement(n, "SECTION") {
				child := n.children[0]
				for _, a := range n.attrs {
					child.setAttribute(a.name, a.value)
				}
				n.parent.replaceChild(child, n)
				n = child
				continue
			}
		}
		n = e.getNextNode(n, false)
	}
}

// cleanClasses removes the class attribute from every element in the given
// subtree, except the classes to preserve.
func (e *extractor) cleanClasses(n *node) {
	className := n.class()
	if className != "" {
		className = strings.Join(filter(e.preserve, multipleWhitespaces.Split(className, -1)...), " ")
	}

	if className != "" {
		n.setAttribute("class", className)
	} else {
		n.removeAttribute("class")
	}

	for child := n.firstElementChild(); child != nil; child = child.nextElement {
		e.cleanClasses(child)
	}
}

func (e *extractor) preserve(class string) bool {
	return slices.Contains(preservedClasses, class) ||
		slices.Contains(e.opts.classesToPreserve, class)
}
