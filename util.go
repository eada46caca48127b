package readably

import (
	"bytes"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

func anyOf(strings ...string) string {
	for _, s := range strings {
		if s != "" {
			return s
		}
	}
	return ""
}

func filter(keep func(string) bool, strs ...string) []string {
	var filtered []string
	for _, str := range strs {
		if keep(str) {
			filtered = append(filtered, str)
		}
	}
	return filtered
}

func insertAt(n *node, idx int, nodes []*node) []*node {
	return append(nodes[:idx], append([]*node{n}, nodes[idx:]...)...)
}

// Helpers over x/net/html trees, used only by the pre-check which never
// builds the extraction DOM.

func querySelectorAll(n *html.Node, query string) []*html.Node {
	sel, err := cascadia.ParseGroup(query)
	if err != nil {
		return nil
	}
	return cascadia.QueryAll(n, sel)
}

func matches(n *html.Node, query string) bool {
	sel, err := cascadia.Parse(query)
	if err != nil {
		return false
	}
	return sel.Match(n)
}

func attr(n *html.Node, attrName string) string {
	for _, a := range n.Attr {
		if a.Key == attrName {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var buf bytes.Buffer

	var getText func(*html.Node)
	getText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			getText(child)
		}
	}
	getText(n)

	return buf.String()
}
