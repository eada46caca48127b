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

	"golang.org/x/net/html"
)

func isNodeVisible(n *html.Node) bool {
	style := attr(n, "style")
	return !strings.Contains(style, "display:none") &&
		!strings.Contains(style, "display: none") &&
		!strings.Contains(style, "visibility:hidden") &&
		!strings.Contains(style, "visibility: hidden") &&
		attr(n, "hidden") == "" &&
		(attr(n, "aria-hidden") != "true" ||
			strings.Contains(attr(n, "class"), "fallback-image"))
}

// IsProbablyReaderable decides whether the document looks worth extracting
// without running the full pipeline. It scans paragraph-like nodes near the
// top of the tree and accumulates a score from their visible text length;
// it is a fast-reject filter and is intentionally no stricter than Extract.
//
// Options:
//   - MinContentLength (default 140), the minimum node content length counted
//   - MinScore (default 20), the cumulated score needed to accept
//   - VisibilityChecker (default isNodeVisible)
//
// A run that exceeds its wall-clock budget reports false.
func IsProbablyReaderable(markup string, opts ...Option) bool {

	options := defaultOpts()
	for _, opt := range opts {
		opt(options)
	}
	bdg := newBudget(options.budget)

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return false
	}

	nodes := querySelectorAll(doc, "p, pre, article")
	// <div> nodes which have <br> node(s) count too; some articles look like
	// <div>
	//   Sentences<br>
	//   <br>
	//   Sentences<br>
	// </div>
	brNodes := querySelectorAll(doc, "div > br")
	if len(brNodes) != 0 {
		var parents []*html.Node
		for _, n := range brNodes {
			if !slices.Contains(parents, n.Parent) {
				parents = append(parents, n.Parent)
			}
		}
		nodes = append(nodes, parents...)
	}

	var score float64
	// Cheeky: the accumulator decides what ContainsFunc returns.
	return slices.ContainsFunc(nodes, func(n *html.Node) bool {
		if bdg.exceeded() {
			return false
		}
		if !options.visibilityChecker(n) {
			return false
		}

		matchString := attr(n, "class") + " " + attr(n, "id")
		if unlikelyCandidates.MatchString(matchString) &&
			!okMaybeItsACandidate.MatchString(matchString) {
			return false
		}

		if matches(n, "li p") {
			return false
		}

		textContentLength := len(strings.TrimSpace(nodeText(n)))
		if textContentLength < options.minContentLength {
			return false
		}

		score += math.Sqrt(float64(textContentLength - options.minContentLength))

		return score > options.minScore
	})
}
