// File: internal/page/html.go
package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// FromHTML converts a parsed HTML tree into a Node snapshot. Each node keeps
// its source *html.Node in Handle.
func FromHTML(root *html.Node) *Node {
	var convert func(*html.Node) *Node
	convert = func(h *html.Node) *Node {
		var n *Node
		switch h.Type {
		case html.DocumentNode:
			n = &Node{Type: DocumentNode}
		case html.ElementNode:
			attrs := make(map[string]string, len(h.Attr))
			for _, a := range h.Attr {
				attrs[strings.ToLower(a.Key)] = a.Val
			}
			n = NewElement(h.Data, attrs)
		case html.TextNode:
			n = NewText(h.Data)
		default:
			return nil
		}
		n.Handle = h
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				n.AppendChild(child)
			}
		}
		return n
	}
	return convert(root)
}

// ParseHTML parses a complete document into a Node snapshot.
func ParseHTML(r io.Reader) (*Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return FromHTML(root), nil
}

// MustParseHTML is ParseHTML for fixtures. It panics on error.
func MustParseHTML(s string) *Node {
	n, err := ParseHTML(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return n
}
