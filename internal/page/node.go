// File: internal/page/node.go
package page

import (
	"strings"
)

// NodeType is the subset of DOM node types the snapshot keeps.
type NodeType int

const (
	ElementNode NodeType = iota + 1
	TextNode
	DocumentNode
)

// Node is a driver independent snapshot of a DOM node. Drivers attach their
// own reference in Handle so that input can be routed back to the live node.
type Node struct {
	Type NodeType
	// Tag is the lowercased tag name for elements.
	Tag string
	// Data is the character data of text nodes.
	Data     string
	Attrs    map[string]string
	Parent   *Node
	Children []*Node
	Handle   any
}

// NewElement builds a detached element node.
func NewElement(tag string, attrs map[string]string) *Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag), Attrs: attrs}
}

// NewText builds a detached text node.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	return n
}

// IsElement reports whether n is an element, optionally of one of tags.
func (n *Node) IsElement(tags ...string) bool {
	if n == nil || n.Type != ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Tag == t {
			return true
		}
	}
	return false
}

// Attr returns the value of an attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[strings.ToLower(name)]
	return v, ok
}

// AttrOr returns the attribute value or "" when absent.
func (n *Node) AttrOr(name string) string {
	v, _ := n.Attr(name)
	return v
}

// HasAttr reports whether the attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// InputType returns the type attribute of an input, lowercased, defaulting
// to "text". It is empty for other elements.
func (n *Node) InputType() string {
	if !n.IsElement("input") {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(n.AttrOr("type")))
	if t == "" {
		return "text"
	}
	return t
}

// ElementChildren returns the element children of n.
func (n *Node) ElementChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// IsLeaf reports whether n is an element without element children.
func (n *Node) IsLeaf() bool {
	if !n.IsElement() {
		return false
	}
	for _, c := range n.Children {
		if c.Type == ElementNode {
			return false
		}
	}
	return true
}

// TextContent concatenates the character data of all descendant text nodes,
// like the DOM property of the same name. Script and style bodies are skipped.
func (n *Node) TextContent() string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		for _, c := range x.Children {
			switch c.Type {
			case TextNode:
				b.WriteString(c.Data)
			case ElementNode:
				if c.Tag == "script" || c.Tag == "style" {
					continue
				}
				walk(c)
			}
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// Text is the whitespace-normalized text content of n.
func (n *Node) Text() string {
	return Normalize(n.TextContent())
}

// Normalize trims s and collapses internal whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Matches compares two strings the way locators do: whitespace-normalized and
// case-insensitive.
func Matches(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// ContainsFold reports whether haystack contains needle, normalized and
// case-insensitively.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(Normalize(haystack)), strings.ToLower(Normalize(needle)))
}

// Walk visits n and every descendant element in document order. Returning
// false from fn prunes the subtree of that element.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if n.Type == ElementNode && !fn(n) {
		return
	}
	for _, c := range n.Children {
		if c.Type == ElementNode || c.Type == DocumentNode {
			c.Walk(fn)
		}
	}
}

// Elements lists every element under n (n included) in document order.
func (n *Node) Elements() []*Node {
	var out []*Node
	n.Walk(func(e *Node) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Find returns the elements under n for which pred holds, in document order.
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	n.Walk(func(e *Node) bool {
		if pred(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// First returns the first element under n for which pred holds.
func (n *Node) First(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(e *Node) bool {
		if found != nil {
			return false
		}
		if pred(e) {
			found = e
			return false
		}
		return true
	})
	return found
}

// Closest returns the nearest ancestor-or-self element satisfying pred.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for x := n; x != nil; x = x.Parent {
		if x.Type == ElementNode && pred(x) {
			return x
		}
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for x := other; x != nil; x = x.Parent {
		if x == n {
			return true
		}
	}
	return false
}

// Depth is the number of ancestors of n.
func (n *Node) Depth() int {
	d := 0
	for x := n.Parent; x != nil; x = x.Parent {
		d++
	}
	return d
}

// Body returns the body element of a document, or the root itself.
func (n *Node) Body() *Node {
	if b := n.First(func(e *Node) bool { return e.Tag == "body" }); b != nil {
		return b
	}
	return n
}

// ByID returns the element with the given id attribute.
func (n *Node) ByID(id string) *Node {
	if id == "" {
		return nil
	}
	return n.First(func(e *Node) bool { return e.AttrOr("id") == id })
}

// LabelTarget returns the form control a <label> refers to: the element named
// by its for attribute, else the first labelable descendant.
func (n *Node) LabelTarget(root *Node) *Node {
	if !n.IsElement("label") {
		return nil
	}
	if id, ok := n.Attr("for"); ok && id != "" {
		return root.ByID(id)
	}
	for _, e := range n.Elements()[1:] {
		if IsLabelable(e) {
			return e
		}
	}
	return nil
}

// IsLabelable reports whether a label can be associated with n.
func IsLabelable(n *Node) bool {
	if n.IsElement("textarea", "select", "button", "meter", "output", "progress") {
		return true
	}
	return n.IsElement("input") && n.InputType() != "hidden"
}

// LabelsOf returns the labels associated with control, by for/id or by
// wrapping, in document order.
func LabelsOf(root, control *Node) []*Node {
	id := control.AttrOr("id")
	return root.Find(func(e *Node) bool {
		if !e.IsElement("label") {
			return false
		}
		if f, ok := e.Attr("for"); ok {
			return id != "" && f == id
		}
		return e.Contains(control)
	})
}

// IsCheckable reports whether n is a checkbox or radio input, or carries the
// equivalent ARIA role.
func IsCheckable(n *Node) bool {
	if n.IsElement("input") {
		t := n.InputType()
		return t == "checkbox" || t == "radio"
	}
	role := strings.ToLower(n.AttrOr("role"))
	return n.IsElement() && (role == "checkbox" || role == "radio" || role == "switch")
}

// IsEditable reports whether n accepts typed text.
func IsEditable(n *Node) bool {
	if n.IsElement("textarea") {
		return true
	}
	if n.IsElement("input") {
		switch n.InputType() {
		case "text", "email", "password", "search", "tel", "url", "number", "date",
			"datetime-local", "month", "time", "week":
			return true
		}
		return false
	}
	ce, ok := n.Attr("contenteditable")
	return n.IsElement() && ok && !strings.EqualFold(ce, "false")
}
