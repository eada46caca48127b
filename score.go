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
	"slices"
	"strings"
	"unicode/utf8"
)

// How many visited elements sit between two budget checkpoints while
// scoring.
const scoreCheckpointEvery = 512

var (
	// Element tags to score by default.
	defaultTagsToScore = []string{"SECTION", "H2", "H3", "H4", "H5", "H6", "P", "TD", "PRE"}

	unlikelyRoles = []string{"menu", "menubar", "complementary", "navigation", "alert", "alertdialog", "dialog"}

	divToPElems = []string{"BLOCKQUOTE", "DL", "DIV", "IMG", "OL", "P", "PRE", "TABLE", "UL"}

	alterToDivExceptions = []string{"DIV", "ARTICLE", "SECTION", "P"}

	// The commented out elements qualify as phrasing content but tend to be
	// removed by the cleaner when put into paragraphs, so we ignore them here.
	phrasingElems = []string{
		// "CANVAS", "IFRAME", "SVG", "VIDEO",
		"ABBR", "AUDIO", "B", "BDO", "BR", "BUTTON", "CITE", "CODE", "DATA",
		"DATALIST", "DFN", "EM", "EMBED", "I", "IMG", "INPUT", "KBD", "LABEL",
		"MARK", "MATH", "METER", "NOSCRIPT", "OBJECT", "OUTPUT", "PROGRESS", "Q",
		"RUBY", "SAMP", "SCRIPT", "SELECT", "SMALL", "SPAN", "STRONG", "SUB",
		"SUP", "TEXTAREA", "TIME", "VAR", "WBR"}
)

// prepDocument strips style tags, normalizes <br> runs into paragraphs and
// replaces deprecated font tags, so the scorer sees consistent markup.
func (e *extractor) prepDocument() {
	e.removeNodes(e.getAllNodesWithTag(e.doc, "style"), nil)

	if e.doc.body != nil {
		e.replaceBrs(e.doc.body)
	}

	e.replaceNodeTags(e.getAllNodesWithTag(e.doc, "font"), "SPAN")
}

// nextNonWhitespace finds the next node, starting from the given node, and
// ignoring whitespace in between. If the given node is an element, the
// same node is returned.
func (e *extractor) nextNonWhitespace(n *node) *node {
	next := n
	for next != nil &&
		next.kind != elementNode &&
		whitespace.MatchString(next.textContent()) {
		next = next.nextSibling
	}
	return next
}

// replaceBrs replaces 2 or more successive <br> elements with a single <p>,
// ignoring whitespace between them. For example:
//
//	<div>foo<br>bar<br> <br><br>abc</div>
//
// will become:
//
//	<div>foo<br>bar<p>abc</p></div>
func (e *extractor) replaceBrs(n *node) {

	for _, br := range e.getAllNodesWithTag(n, "br") {
		next := br.nextSibling

		// Whether 2 or more <br> elements have been found and replaced.
		replaced := false

		// Remove a chain of <br>s until another node or non-whitespace hits,
		// leaving behind the first <br> (replaced with a <p> below).
		for next = e.nextNonWhitespace(next); next != nil && next.tag == "BR"; {
			replaced = true
			brSibling := next.nextSibling
			if next.parent != nil {
				next.parent.removeChild(next)
			}
			next = brSibling
		}

		if replaced {
			p := newElement("p")
			br.parent.replaceChild(p, br)

			next = p.nextSibling
			for next != nil {
				// Another <br><br> ends this paragraph.
				if next.tag == "BR" {
					nextElem := e.nextNonWhitespace(next.nextSibling)
					if nextElem != nil && nextElem.tag == "BR" {
						break
					}
				}

				if !e.isPhrasingContent(next) {
					break
				}

				sibling := next.nextSibling
				p.appendChild(next)
				next = sibling
			}

			for p.lastChild() != nil && e.isWhitespaceNode(p.lastChild()) {
				p.removeChild(p.lastChild())
			}

			if p.parent.tag == "P" {
				e.setNodeTag(p.parent, "DIV")
			}
		}
	}
}

// isPhrasingContent determines if a node qualifies as phrasing content.
// see: https://developer.mozilla.org/en-US/docs/Web/Guide/HTML/Content_categories#Phrasing_content
func (e *extractor) isPhrasingContent(n *node) bool {
	return n.kind == textNode || slices.Contains(phrasingElems, n.tag) ||
		((n.tag == "A" || n.tag == "DEL" || n.tag == "INS") &&
			e.everyNode(n.childNodes, e.isPhrasingContent))
}

// hasChildBlockElement determines whether the element has any children
// block level elements.
func (e *extractor) hasChildBlockElement(element *node) bool {
	return e.someNode(element.childNodes, func(n *node) bool {
		return slices.Contains(divToPElems, n.tag) ||
			e.hasChildBlockElement(n)
	})
}

// hasSingleTagInsideElement checks if this node has only whitespace and a
// single element with the given tag.
func (e *extractor) hasSingleTagInsideElement(element *node, tag string) bool {
	if len(element.children) != 1 || element.children[0].tag != tag {
		return false
	}

	// And there should be no text nodes with real content.
	return !e.someNode(element.childNodes, func(n *node) bool {
		return n.kind == textNode &&
			hasContent.MatchString(n.textContent())
	})
}

func (e *extractor) isElementWithoutContent(n *node) bool {
	return n.kind == elementNode &&
		len(strings.TrimSpace(n.textContent())) == 0 &&
		(len(n.children) == 0 ||
			len(n.children) == len(n.getElementsByTagName("br"))+len(n.getElementsByTagName("hr")))
}

// initCandidate seeds an element's score from its tag semantics plus its
// class/id weight.
func (e *extractor) initCandidate(n *node) {
	var score float64

	switch n.tag {
	case "DIV":
		score += 5
	case "PRE", "TD", "BLOCKQUOTE":
		score += 3
	case "ADDRESS", "OL", "UL", "DL", "DD", "DT", "LI", "FORM":
		score -= 3
	case "H1", "H2", "H3", "H4", "H5", "H6", "TH":
		score -= 5
	}

	e.scores[n] = score + e.getClassWeight(n)
}

// grabArticle finds the content most likely to be the article a user wants
// to read, wrapped in a div. It retries with progressively relaxed flags;
// when even the best attempt stays under the character threshold it fails
// with a typed ExtractionError.
func (e *extractor) grabArticle() (*node, error) {

	e.log.Debug("**** grabArticle ****")
	doc := e.doc
	page := doc.body
	pageCacheHtml := page.innerHTML()

	for {
		e.log.Debug("starting grabArticle loop")
		stripUnlikelyCandidates := e.flagIsActive(flagStripUnlikelys)

		// Candidate state is scratch for a single attempt.
		e.scores = make(map[*node]float64)

		// First, node prepping: trash nodes that look cruddy and turn divs
		// into P tags where they have been used inappropriately (as in,
		// where they contain no other block level elements).
		var elementsToScore []*node
		n := doc.root

		shouldRemoveTitleHeader := true
		visited := 0

		for n != nil {

			if visited++; visited%scoreCheckpointEvery == 0 {
				if err := e.bdg.check(); err != nil {
					return nil, err
				}
			}

			if n.tag == "HTML" {
				e.articleLang = n.getAttribute("lang")
			}

			matchString := n.class() + " " + n.id()

			if !isProbablyVisible(n) {
				e.log.Debug("removing hidden node", "match", matchString)
				n = e.removeAndGetNext(n)
				continue
			}

			// Elements with "aria-modal=true" and "role=dialog" are not
			// visible to the reader either.
			if n.getAttribute("aria-modal") == "true" && n.getAttribute("role") == "dialog" {
				n = e.removeAndGetNext(n)
				continue
			}

			if e.checkByline(n, matchString) {
				n = e.removeAndGetNext(n)
				continue
			}

			if shouldRemoveTitleHeader && e.headerDuplicatesTitle(n) {
				e.log.Debug("removing header duplicating title", "heading", strings.TrimSpace(n.textContent()))
				shouldRemoveTitleHeader = false
				n = e.removeAndGetNext(n)
				continue
			}

			if stripUnlikelyCandidates {
				if unlikelyCandidates.MatchString(matchString) &&
					!okMaybeItsACandidate.MatchString(matchString) &&
					!e.hasAncestorTag(n, "table", 3, nil) &&
					!e.hasAncestorTag(n, "code", 3, nil) &&
					n.tag != "BODY" &&
					n.tag != "A" {
					e.log.Debug("removing unlikely candidate", "match", matchString)
					n = e.removeAndGetNext(n)
					continue
				}
			}

			if slices.Contains(unlikelyRoles, n.getAttribute("role")) {
				e.log.Debug("removing content by role", "role", n.getAttribute("role"))
				n = e.removeAndGetNext(n)
				continue
			}

			// Remove DIV, SECTION, and HEADER nodes without any content
			// (e.g. text, image, video, or iframe).
			if (n.tag == "DIV" || n.tag == "SECTION" || n.tag == "HEADER" ||
				n.tag == "H1" || n.tag == "H2" || n.tag == "H3" ||
				n.tag == "H4" || n.tag == "H5" || n.tag == "H6") &&
				e.isElementWithoutContent(n) {
				n = e.removeAndGetNext(n)
				continue
			}

			if slices.Contains(defaultTagsToScore, n.tag) {
				elementsToScore = append(elementsToScore, n)
			}

			// Turn all divs that don't have children block level elements
			// into p's.
			if n.tag == "DIV" {
				// Put phrasing content into paragraphs.
				var p *node
				childNode := n.firstChild()
				for childNode != nil {
					nextSibling := childNode.nextSibling
					if e.isPhrasingContent(childNode) {
						if p != nil {
							p.appendChild(childNode)
						} else if !e.isWhitespaceNode(childNode) {
							p = newElement("p")
							n.replaceChild(p, childNode)
							p.appendChild(childNode)
						}
					} else if p != nil {
						for p.lastChild() != nil && e.isWhitespaceNode(p.lastChild()) {
							p.removeChild(p.lastChild())
						}
						p = nil
					}
					childNode = nextSibling
				}

				// DIVs with only a P element inside and no text content can
				// be safely converted into plain P elements to avoid
				// confusing the scoring algorithm.
				if e.hasSingleTagInsideElement(n, "P") && e.getLinkDensity(n) < 0.25 {
					newNode := n.children[0]
					n.parent.replaceChild(newNode, n)
					n = newNode
					elementsToScore = append(elementsToScore, n)
				} else if !e.hasChildBlockElement(n) {
					n = e.setNodeTag(n, "P")
					elementsToScore = append(elementsToScore, n)
				}
			}
			n = e.getNextNode(n, false)
		}

		// Loop through all paragraphs and assign a score based on how
		// content-y they look, then add the score to their ancestors.
		var candidates []*node
		for i, elementToScore := range elementsToScore {

			if i%scoreCheckpointEvery == 0 {
				if err := e.bdg.check(); err != nil {
					return nil, err
				}
			}

			if elementToScore.parent == nil {
				continue
			}

			// Paragraphs under 25 characters don't count.
			innerText := e.innerText(elementToScore, true)
			if utf8.RuneCountInString(innerText) < 25 {
				continue
			}

			ancestors := e.getNodeAncestors(elementToScore, 5)
			if len(ancestors) == 0 {
				continue
			}

			var contentScore float64

			// A point for the paragraph itself as a base.
			contentScore += 1

			// Points for any commas within this paragraph.
			contentScore += float64(len(commas.Split(innerText, -1)))

			// One point for every 100 characters in this paragraph, up to 3.
			contentScore += math.Min(math.Floor(float64(utf8.RuneCountInString(innerText))/100), 3)

			for level, ancestor := range ancestors {
				if ancestor.tag == "" || ancestor.parent == nil || ancestor.parent.tag == "" {
					continue
				}

				if _, seen := e.scores[ancestor]; !seen {
					e.initCandidate(ancestor)
					candidates = append(candidates, ancestor)
				}

				// Node score divider:
				// - parent:             1 (no division)
				// - grandparent:        2
				// - great grandparent+: ancestor level * 3
				var scoreDivider int
				switch level {
				case 0:
					scoreDivider = 1
				case 1:
					scoreDivider = 2
				default:
					scoreDivider = level * 3
				}
				e.scores[ancestor] += contentScore / float64(scoreDivider)
			}
		}

		// Scale candidate scores by link density: good content has a small
		// link density (5% or less) and is mostly unaffected, while
		// navigation-heavy containers get suppressed. Then keep the top-N.
		var topCandidates []*node
		for _, candidate := range candidates {
			candidateScore := e.scores[candidate] * (1 - e.getLinkDensity(candidate))
			e.scores[candidate] = candidateScore

			e.log.Debug("candidate scored", "score", candidateScore, "tag", candidate.tag)

			for t := 0; t < e.opts.nbTopCandidates; t++ {
				var aTopCandidate *node
				if len(topCandidates) > t {
					aTopCandidate = topCandidates[t]
				}

				// Strictly greater keeps the earlier (document-order)
				// candidate in front on exact ties.
				if aTopCandidate == nil || candidateScore > e.scores[aTopCandidate] {
					topCandidates = insertAt(candidate, t, topCandidates)
					if len(topCandidates) > e.opts.nbTopCandidates {
						topCandidates = topCandidates[:len(topCandidates)-1]
					}
					break
				}
			}
		}

		var topCandidate *node
		if len(topCandidates) > 0 {
			topCandidate = topCandidates[0]
		}
		var neededToCreateTopCandidate bool
		var parentOfTopCandidate *node

		if topCandidate == nil || topCandidate.tag == "BODY" {
			// No top candidate: use the whole body as a last resort, moved
			// into a container we can modify.
			topCandidate = newElement("div")
			neededToCreateTopCandidate = true
			for page.firstChild() != nil {
				topCandidate.appendChild(page.firstChild())
			}

			page.appendChild(topCandidate)

			e.initCandidate(topCandidate)
		} else {
			// Find a better top candidate if it contains at least three
			// nodes from the top list whose scores are close to its own.
			var alternativeCandidateAncestors [][]*node
			for i := 1; i < len(topCandidates); i++ {
				if e.scores[topCandidates[i]]/e.scores[topCandidate] >= 0.75 {
					alternativeCandidateAncestors = append(alternativeCandidateAncestors, e.getNodeAncestors(topCandidates[i], 0))
				}
			}
			const minimumTopCandidates = 3
			if len(alternativeCandidateAncestors) >= minimumTopCandidates {
				parentOfTopCandidate = topCandidate.parent
				for parentOfTopCandidate != nil && parentOfTopCandidate.tag != "BODY" {
					listsContainingThisAncestor := 0
					for ancestorIndex := 0; ancestorIndex < len(alternativeCandidateAncestors) && listsContainingThisAncestor < minimumTopCandidates; ancestorIndex++ {
						if slices.Contains(alternativeCandidateAncestors[ancestorIndex], parentOfTopCandidate) {
							listsContainingThisAncestor++
						}
					}
					if listsContainingThisAncestor >= minimumTopCandidates {
						topCandidate = parentOfTopCandidate
						break
					}
					parentOfTopCandidate = parentOfTopCandidate.parent
				}
			}
			if _, seen := e.scores[topCandidate]; !seen {
				e.initCandidate(topCandidate)
			}

			// Because of the bonus system, parents of candidates have scores
			// themselves. If the score goes *up* in the first few steps up
			// the tree that's a decent sign there might be more content
			// lurking in other places we want to unify in.
			parentOfTopCandidate = topCandidate.parent
			lastScore := e.scores[topCandidate]
			// The scores shouldn't get too low.
			scoreThreshold := lastScore / 3
			for parentOfTopCandidate != nil && parentOfTopCandidate.tag != "BODY" {
				parentScore, seen := e.scores[parentOfTopCandidate]
				if !seen {
					parentOfTopCandidate = parentOfTopCandidate.parent
					continue
				}
				if parentScore < scoreThreshold {
					break
				}
				if parentScore > lastScore {
					// Found a better parent to use.
					topCandidate = parentOfTopCandidate
					break
				}
				lastScore = parentScore
				parentOfTopCandidate = parentOfTopCandidate.parent
			}

			// If the top candidate is the only child, use the parent
			// instead; this helps sibling joining when adjacent content is
			// actually located in the parent's sibling node.
			parentOfTopCandidate = topCandidate.parent
			for parentOfTopCandidate != nil && parentOfTopCandidate.tag != "BODY" && len(parentOfTopCandidate.children) == 1 {
				topCandidate = parentOfTopCandidate
				parentOfTopCandidate = topCandidate.parent
			}
			if _, seen := e.scores[topCandidate]; !seen {
				e.initCandidate(topCandidate)
			}
		}

		// Look through the top candidate's siblings for content that might
		// also be related: preambles, content split by ads, etc.
		articleContent := newElement("div")
		siblingScoreThreshold := math.Max(10, e.scores[topCandidate]*0.2)
		// Keep the parent around to find the text direction later.
		parentOfTopCandidate = topCandidate.parent
		siblings := parentOfTopCandidate.children
		for s := 0; s < len(siblings); s++ {
			sibling := siblings[s]
			appendSibling := false

			if sibling == topCandidate {
				appendSibling = true
			} else {
				var contentBonus float64
				// Bonus for sibling nodes sharing the top candidate's class.
				if sibling.class() == topCandidate.class() && topCandidate.class() != "" {
					contentBonus += e.scores[topCandidate] * 0.2
				}

				if siblingScore, seen := e.scores[sibling]; seen &&
					siblingScore+contentBonus >= siblingScoreThreshold {
					appendSibling = true
				} else if sibling.tag == "P" {
					linkDensity := e.getLinkDensity(sibling)
					nodeContent := e.innerText(sibling, true)
					nodeLength := utf8.RuneCountInString(nodeContent)

					if nodeLength > 80 && linkDensity < 0.25 {
						appendSibling = true
					} else if nodeLength < 80 && linkDensity == 0 && dotSpaceOrDollar.MatchString(nodeContent) {
						appendSibling = true
					}
				}
			}

			if appendSibling {
				e.log.Debug("appending sibling", "tag", sibling.tag)
				if !slices.Contains(alterToDivExceptions, sibling.tag) {
					// A node that isn't a common block level element, like a
					// form or td tag: turn it into a div so it doesn't get
					// filtered out later by accident.
					sibling = e.setNodeTag(sibling, "DIV")
				}

				articleContent.appendChild(sibling)
				// appendChild removed the sibling from the children slice we
				// are iterating, so revisit this index.
				siblings = parentOfTopCandidate.children
				s--
			}
		}

		// All the content is gathered; clean it up for presentation.
		e.prepArticle(articleContent)

		if neededToCreateTopCandidate {
			topCandidate.setAttribute("id", "readability-page-1")
			topCandidate.setAttribute("class", "page")
		} else {
			div := newElement("div")
			div.setAttribute("id", "readability-page-1")
			div.setAttribute("class", "page")
			for articleContent.firstChild() != nil {
				div.appendChild(articleContent.firstChild())
			}
			articleContent.appendChild(div)
		}

		// Check whether the attempt produced meaningful content; if not,
		// re-run with different flags set. The sieve gives a higher
		// likelihood of finding the -right- content.
		textLength := utf8.RuneCountInString(e.innerText(articleContent, true))
		if textLength < e.opts.charThreshold {
			page.setInnerHTML(pageCacheHtml)
			e.attempts = append(e.attempts, attempt{articleContent: articleContent, textLength: textLength})

			switch {
			case e.flagIsActive(flagStripUnlikelys):
				e.removeFlag(flagStripUnlikelys)
			case e.flagIsActive(flagWeightClasses):
				e.removeFlag(flagWeightClasses)
			case e.flagIsActive(flagCleanConditionally):
				e.removeFlag(flagCleanConditionally)
			default:
				// No luck with any flag combination. Report how close the
				// longest attempt came.
				slices.SortFunc(e.attempts, func(a, b attempt) int {
					return b.textLength - a.textLength
				})
				if e.attempts[0].textLength == 0 {
					return nil, &ExtractionError{Reason: ErrNoCandidates}
				}
				return nil, &ExtractionError{Reason: ErrBelowThreshold, TextLength: e.attempts[0].textLength}
			}
			continue
		}

		// Find the text direction from the ancestors of the final top
		// candidate.
		ancestors := append([]*node{parentOfTopCandidate, topCandidate}, e.getNodeAncestors(parentOfTopCandidate, 0)...)
		e.someNode(ancestors, func(ancestor *node) bool {
			if ancestor == nil || ancestor.tag == "" {
				return false
			}
			if dir := ancestor.getAttribute("dir"); dir != "" {
				e.articleDir = dir
				return true
			}
			return false
		})
		return articleContent, nil
	}
}
