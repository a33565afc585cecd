// Package parser extracts anchor elements from HTML documents.
// Anchors are returned in document order, including those without an href,
// so callers decide how to treat malformed links.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Anchor represents one <a> element
type Anchor struct {
	Href    string // Raw href attribute value, unresolved
	HasHref bool   // False when the element has no href attribute at all
	Text    string // Text content of the element
	Rel     string // Value of the rel attribute
}

// ParseResult contains the parsed HTML data
type ParseResult struct {
	Title   string
	Anchors []Anchor
}

// Parse parses HTML content and returns its title and all anchors.
func Parse(htmlContent []byte) (*ParseResult, error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &ParseResult{
		Anchors: []Anchor{},
	}
	traverse(doc, result)

	return result, nil
}

// Links returns the href values of anchors that have one, in document order.
func (r *ParseResult) Links() []string {
	links := make([]string, 0, len(r.Anchors))
	for _, a := range r.Anchors {
		if a.HasHref {
			links = append(links, a.Href)
		}
	}
	return links
}

// traverse recursively walks the HTML tree
func traverse(n *html.Node, result *ParseResult) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				result.Title = strings.TrimSpace(n.FirstChild.Data)
			}

		case "a":
			result.Anchors = append(result.Anchors, parseAnchor(n))
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		traverse(c, result)
	}
}

func parseAnchor(n *html.Node) Anchor {
	var anchor Anchor

	for _, attr := range n.Attr {
		switch attr.Key {
		case "href":
			anchor.Href = strings.TrimSpace(attr.Val)
			anchor.HasHref = true
		case "rel":
			anchor.Rel = attr.Val
		}
	}

	anchor.Text = extractText(n)
	return anchor
}

// extractText recursively extracts text content from a node
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text := extractText(c)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}
