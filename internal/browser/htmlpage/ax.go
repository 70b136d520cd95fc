// File: internal/browser/htmlpage/ax.go
package htmlpage

import (
	"strings"

	"github.com/xkilldash9x/pwscript/internal/page"
)

// implicitRoles approximates the HTML-AAM role mapping for the elements
// static documents commonly contain.
var implicitRoles = map[string]string{
	"button":   "button",
	"nav":      "navigation",
	"main":     "main",
	"header":   "banner",
	"footer":   "contentinfo",
	"aside":    "complementary",
	"form":     "form",
	"ul":       "list",
	"ol":       "list",
	"li":       "listitem",
	"table":    "table",
	"tr":       "row",
	"td":       "cell",
	"th":       "columnheader",
	"p":        "paragraph",
	"img":      "img",
	"textarea": "textbox",
	"select":   "combobox",
	"option":   "option",
	"label":    "LabelText",
	"dialog":   "dialog",
	"article":  "article",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
}

// nameFromContent lists roles whose accessible name defaults to their text.
var nameFromContent = map[string]bool{
	"button": true, "link": true, "heading": true, "option": true, "cell": true,
	"columnheader": true, "menuitem": true, "tab": true, "checkbox": true, "radio": true,
}

func roleOf(n *page.Node) string {
	if r := strings.TrimSpace(n.AttrOr("role")); r != "" {
		return strings.Fields(r)[0]
	}
	switch n.Tag {
	case "a":
		if n.HasAttr("href") {
			return "link"
		}
		return "generic"
	case "input":
		switch n.InputType() {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "submit", "button", "reset":
			return "button"
		case "hidden":
			return "none"
		case "search":
			return "searchbox"
		}
		return "textbox"
	case "div", "span", "section":
		return "generic"
	case "script", "style", "head", "title", "meta", "link", "html", "body":
		return "none"
	}
	return implicitRoles[n.Tag]
}

func accessibleName(n *page.Node, root *page.Node, role string) string {
	if v := page.Normalize(n.AttrOr("aria-label")); v != "" {
		return v
	}
	if page.IsLabelable(n) {
		for _, l := range page.LabelsOf(root, n) {
			if t := l.Text(); t != "" {
				return t
			}
		}
	}
	switch {
	case n.Tag == "img":
		return page.Normalize(n.AttrOr("alt"))
	case n.IsElement("input") && (role == "button"):
		return page.Normalize(n.AttrOr("value"))
	case nameFromContent[role]:
		return n.Text()
	}
	if v := page.Normalize(n.AttrOr("placeholder")); v != "" {
		return v
	}
	return page.Normalize(n.AttrOr("title"))
}

func isHidden(n *page.Node) bool {
	return n.HasAttr("hidden") || strings.EqualFold(n.AttrOr("aria-hidden"), "true")
}

// accessibilityTree derives a pre-order accessibility listing from a
// document: a RootWebArea, then one node per element and a StaticText node
// per non-blank text run. Hidden subtrees are reported as ignored.
func accessibilityTree(doc *page.Node, title string) []page.AXNode {
	nodes := []page.AXNode{{Role: "RootWebArea", Name: title}}
	var walk func(n *page.Node, hidden bool)
	walk = func(n *page.Node, hidden bool) {
		for _, c := range n.Children {
			switch c.Type {
			case page.TextNode:
				if t := page.Normalize(c.Data); t != "" {
					nodes = append(nodes, page.AXNode{Role: "StaticText", Name: t, Ignored: hidden})
				}
			case page.ElementNode, page.DocumentNode:
				if c.Tag == "script" || c.Tag == "style" || c.Tag == "head" {
					continue
				}
				h := hidden || isHidden(c)
				role := roleOf(c)
				nodes = append(nodes, page.AXNode{
					Role:    role,
					Name:    accessibleName(c, doc, role),
					Ignored: h,
				})
				walk(c, h)
			}
		}
	}
	walk(doc, false)
	return nodes
}
