// Package mapping aligns editor source lines with elements of the rendered
// preview document. The preview tree is the host's own parsed copy of the
// HTML fragment the browser displays, so element ids assigned here are the
// ids the browser sees.
package mapping

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const (
	// IDPrefix is the synthetic id namespace for preview elements.
	IDPrefix = "sync-element-"
	// LineAttr carries the resolved editor line on a preview element.
	// Assigned as "0" until a mapping resolves it.
	LineAttr = "data-sync-line"
)

// syncTags is the allow-list of text-bearing elements that participate in
// mapping.
var syncTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "div": true, "span": true, "li": true, "td": true, "th": true,
	"blockquote": true,
}

// Element is a preview node tagged for sync, in document order.
type Element struct {
	ID   string
	Text string
	Node *html.Node
}

// ParseFragment parses a rendered HTML fragment. The returned node is the
// body container whose children are the fragment's top-level elements.
func ParseFragment(fragment string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse preview fragment: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, fmt.Errorf("parse preview fragment: no body node")
	}
	return body, nil
}

// RenderFragment serializes the children of a body container back to HTML.
func RenderFragment(body *html.Node) (string, error) {
	var b strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("render preview fragment: %w", err)
		}
	}
	return b.String(), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// AssignElementIDs walks the preview tree in document order and tags every
// allow-listed element that has visible text with a placeholder line
// attribute, assigning a synthetic sync id where the element has none.
// Elements with an author id keep it and are candidates like any other, so
// auto-id'd headings and pass-through chapter markup stay mappable. Elements
// are returned in document order; calling twice on the same tree is a no-op
// for already-tagged nodes.
func AssignElementIDs(body *html.Node) []Element {
	var out []Element
	next := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && syncTags[n.Data] {
			text := elementText(n)
			if text != "" {
				id, had := nodeAttr(n, "id")
				if !had {
					id = fmt.Sprintf("%s%d", IDPrefix, next)
					n.Attr = append(n.Attr, html.Attribute{Key: "id", Val: id})
				}
				if strings.HasPrefix(id, IDPrefix) {
					next++
				}
				if _, has := nodeAttr(n, LineAttr); !has {
					setNodeAttr(n, LineAttr, "0")
				}
				out = append(out, Element{ID: id, Text: text, Node: n})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return out
}

// elementText concatenates the trimmed text nodes under n, separated by
// single spaces.
func elementText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func nodeAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setNodeAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
