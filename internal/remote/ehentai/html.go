package ehentai

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && slices.Contains(strings.Fields(getAttr(n, "class")), class)
	}
}

func findText(n *html.Node, match func(*html.Node) bool) string {
	if match(n) {
		return extractTextContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := findText(c, match); text != "" {
			return text
		}
	}
	return ""
}

func findAttr(n *html.Node, match func(*html.Node) bool, attr string) string {
	if match(n) {
		return getAttr(n, attr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if val := findAttr(c, match, attr); val != "" {
			return val
		}
	}
	return ""
}

// findAll visits n and its descendants. A node for which match returns
// true is not descended into.
func findAll(n *html.Node, match func(*html.Node) bool) {
	if match(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findAll(c, match)
	}
}

func extractTextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
