// File: internal/locator/resolver.go
package locator

import (
	"strings"

	"github.com/xkilldash9x/pwscript/internal/page"
)

// strategy is one rule of a resolver. Strategies run in order against the
// search root and the first one returning an element wins.
type strategy struct {
	name string
	find func(root, doc *page.Node, text string) *page.Node
}

func firstMatch(strategies []strategy, root, doc *page.Node, text string) (*page.Node, string) {
	if page.Normalize(text) == "" {
		return nil, ""
	}
	for _, s := range strategies {
		if n := s.find(root, doc, text); n != nil {
			return n, s.name
		}
	}
	return nil, ""
}

// Match describes a resolved element and the rule that found it.
type Match struct {
	Node     *page.Node
	Strategy string
}

// -- click strategies --

// isInteractive also admits reset inputs, which the recorder names by their
// value like submit buttons.
func isInteractive(n *page.Node) bool {
	switch {
	case n.IsElement("button", "a"):
		return true
	case strings.EqualFold(n.AttrOr("role"), "button"):
		return true
	case n.IsElement("input"):
		t := n.InputType()
		return t == "submit" || t == "button" || t == "reset"
	}
	return false
}

func byInteractiveText(root, _ *page.Node, text string) *page.Node {
	return root.First(func(n *page.Node) bool {
		if !isInteractive(n) {
			return false
		}
		if page.Matches(n.TextContent(), text) {
			return true
		}
		v, ok := n.Attr("value")
		return ok && page.Matches(v, text)
	})
}

func byPlaceholder(root, _ *page.Node, text string) *page.Node {
	return root.First(func(n *page.Node) bool {
		p, ok := n.Attr("placeholder")
		return ok && n.IsElement("input", "textarea") && page.Matches(p, text)
	})
}

func byLabel(root, doc *page.Node, text string) *page.Node {
	var target *page.Node
	root.Walk(func(n *page.Node) bool {
		if target != nil {
			return false
		}
		if n.IsElement("label") && page.Matches(n.TextContent(), text) {
			target = n.LabelTarget(doc)
		}
		return true
	})
	return target
}

func byAttr(name string) func(root, _ *page.Node, text string) *page.Node {
	return func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			v, ok := n.Attr(name)
			return ok && page.Matches(v, text)
		})
	}
}

func byLeafText(root, _ *page.Node, text string) *page.Node {
	return root.First(func(n *page.Node) bool {
		return n.IsLeaf() && page.Matches(n.TextContent(), text)
	})
}

var clickStrategies = []strategy{
	{"interactive", byInteractiveText},
	{"placeholder", byPlaceholder},
	{"label", byLabel},
	{"aria-label", byAttr("aria-label")},
	{"title", byAttr("title")},
	{"text", byLeafText},
}

// byControlTag finds an unlabeled control by its tag name, e.g. the icon
// button of a list item recorded as click "button" "Buy milk".
func byControlTag(root, _ *page.Node, text string) *page.Node {
	tag := strings.ToLower(page.Normalize(text))
	return root.First(func(n *page.Node) bool {
		if !n.IsElement(tag) {
			return false
		}
		switch strings.ToLower(n.AttrOr("role")) {
		case "link", "menuitem", "tab":
			return true
		}
		return isInteractive(n)
	})
}

// scopedClickStrategies apply once a scope container narrowed the search.
var scopedClickStrategies = append(append([]strategy(nil), clickStrategies...),
	strategy{"tag", byControlTag})

// -- scope containers --

func isListLike(n *page.Node) bool {
	if n.IsElement("li", "tr", "article") {
		return true
	}
	role := strings.ToLower(n.AttrOr("role"))
	return role == "listitem" || role == "row"
}

// innermost picks, among candidates in document order, the first one that
// contains no other candidate.
func innermost(candidates []*page.Node) *page.Node {
	for i, c := range candidates {
		nested := false
		for _, other := range candidates[i+1:] {
			if c.Contains(other) {
				nested = true
				break
			}
		}
		if !nested {
			return c
		}
	}
	return nil
}

// Container returns the element a scope text narrows the search to: the
// innermost list item, row or article whose text contains scope, else the
// innermost such div. It returns nil when nothing contains the scope.
func Container(doc *page.Node, scope string) *page.Node {
	body := doc.Body()
	tiers := []func(*page.Node) bool{
		isListLike,
		func(n *page.Node) bool { return n.IsElement("div") },
	}
	for _, tier := range tiers {
		candidates := body.Find(func(n *page.Node) bool {
			return tier(n) && page.ContainsFold(n.TextContent(), scope)
		})
		if c := innermost(candidates); c != nil {
			return c
		}
	}
	return nil
}

// ItemContainer returns the innermost list item or row whose text contains
// text.
func ItemContainer(doc *page.Node, text string) *page.Node {
	return innermost(doc.Body().Find(func(n *page.Node) bool {
		if n.IsElement("article") {
			return false
		}
		return isListLike(n) && page.ContainsFold(n.TextContent(), text)
	}))
}

// -- resolvers --

// ByRef returns the n-th element of the document in document order.
func ByRef(doc *page.Node, ref int) *page.Node {
	if ref <= 0 {
		return nil
	}
	elems := doc.Elements()
	if ref > len(elems) {
		return nil
	}
	return elems[ref-1]
}

// Resolve locates the element a click style command targets.
func Resolve(doc *page.Node, t Target) (Match, error) {
	if t.IsRef() {
		if n := ByRef(doc, t.Ref); n != nil {
			return Match{Node: n, Strategy: "ref"}, nil
		}
		return Match{}, notFound("Element", t.Text)
	}

	root, strategies := doc.Body(), clickStrategies
	if t.Scope != "" {
		if c := Container(doc, t.Scope); c != nil {
			root, strategies = c, scopedClickStrategies
		}
	}
	if n, name := firstMatch(strategies, root, doc, t.Text); n != nil {
		return Match{Node: n, Strategy: name}, nil
	}
	return Match{}, notFound("Element", t.Text)
}

var focusStrategies = []strategy{
	{"placeholder", byPlaceholder},
	{"label", byLabel},
	{"aria-label", func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			v, ok := n.Attr("aria-label")
			return ok && n.IsElement("input", "textarea", "select") && page.Matches(v, text)
		})
	}},
	{"editable", func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			if !page.IsEditable(n) {
				return false
			}
			return page.Matches(n.AttrOr("aria-label"), text) || page.Matches(n.AttrOr("placeholder"), text)
		})
	}},
}

// ResolveFocus locates a field that accepts text.
func ResolveFocus(doc *page.Node, t Target) (Match, error) {
	if t.IsRef() {
		if n := ByRef(doc, t.Ref); n != nil {
			return Match{Node: n, Strategy: "ref"}, nil
		}
		return Match{}, notFound("Input", t.Text)
	}
	if n, name := firstMatch(focusStrategies, doc.Body(), doc, t.Text); n != nil {
		return Match{Node: n, Strategy: name}, nil
	}
	return Match{}, notFound("Input", t.Text)
}

var checkboxStrategies = []strategy{
	{"label-for", func(root, doc *page.Node, text string) *page.Node {
		var target *page.Node
		root.Walk(func(n *page.Node) bool {
			if target != nil {
				return false
			}
			if n.IsElement("label") && n.HasAttr("for") && page.Matches(n.TextContent(), text) {
				if c := n.LabelTarget(doc); c != nil && page.IsCheckable(c) {
					target = c
				}
			}
			return true
		})
		return target
	}},
	{"aria-label", func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			return page.IsCheckable(n) && page.Matches(n.AttrOr("aria-label"), text)
		})
	}},
	{"label-container", func(root, doc *page.Node, text string) *page.Node {
		var target *page.Node
		root.Walk(func(n *page.Node) bool {
			if target != nil {
				return false
			}
			if !n.IsElement("label") || !page.Matches(n.TextContent(), text) {
				return true
			}
			if c := n.LabelTarget(doc); c != nil && page.IsCheckable(c) {
				target = c
			} else if n.Parent != nil {
				target = n.Parent.First(page.IsCheckable)
			}
			return true
		})
		return target
	}},
	{"item", func(_, doc *page.Node, text string) *page.Node {
		if item := ItemContainer(doc, text); item != nil {
			return item.First(page.IsCheckable)
		}
		return nil
	}},
}

// ResolveCheckbox locates a checkbox or radio.
func ResolveCheckbox(doc *page.Node, t Target) (Match, error) {
	if t.IsRef() {
		if n := ByRef(doc, t.Ref); n != nil {
			return Match{Node: n, Strategy: "ref"}, nil
		}
		return Match{}, notFound("Checkbox", t.Text)
	}
	if n, name := firstMatch(checkboxStrategies, doc.Body(), doc, t.Text); n != nil {
		return Match{Node: n, Strategy: name}, nil
	}
	return Match{}, notFound("Checkbox", t.Text)
}

var selectStrategies = []strategy{
	{"aria-label", func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			return n.IsElement("select") && page.Matches(n.AttrOr("aria-label"), text)
		})
	}},
	{"label", func(root, doc *page.Node, text string) *page.Node {
		if n := byLabel(root, doc, text); n.IsElement("select") {
			return n
		}
		return nil
	}},
}

// ResolveSelect locates a <select> element.
func ResolveSelect(doc *page.Node, t Target) (Match, error) {
	if t.IsRef() {
		if n := ByRef(doc, t.Ref); n.IsElement("select") {
			return Match{Node: n, Strategy: "ref"}, nil
		}
		return Match{}, notFound("Select", t.Text)
	}
	if n, name := firstMatch(selectStrategies, doc.Body(), doc, t.Text); n != nil {
		return Match{Node: n, Strategy: name}, nil
	}
	return Match{}, notFound("Select", t.Text)
}

// Option is a matched <option> of a select.
type Option struct {
	Node  *page.Node
	Value string
	Label string
}

// MatchOption finds the option of sel whose text or value equals want,
// case-insensitively.
func MatchOption(sel *page.Node, want string) (Option, error) {
	for _, o := range sel.Find(func(n *page.Node) bool { return n.IsElement("option") }) {
		label := o.Text()
		value, hasValue := o.Attr("value")
		if !hasValue {
			value = label
		}
		if page.Matches(label, want) || strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(want)) {
			return Option{Node: o, Value: value, Label: label}, nil
		}
	}
	return Option{}, notFound("Option", want)
}

func isHoverable(n *page.Node) bool {
	if isInteractive(n) || n.IsElement("input", "select", "textarea", "summary", "label", "img") {
		return true
	}
	switch strings.ToLower(n.AttrOr("role")) {
	case "link", "menuitem", "tab", "option", "checkbox", "radio", "switch", "treeitem":
		return true
	}
	return n.HasAttr("onclick") || n.HasAttr("tabindex")
}

var hoverStrategies = append([]strategy{
	{"hoverable", func(root, _ *page.Node, text string) *page.Node {
		return root.First(func(n *page.Node) bool {
			if !isHoverable(n) {
				return false
			}
			return page.Matches(n.TextContent(), text) ||
				page.Matches(n.AttrOr("aria-label"), text) ||
				page.Matches(n.AttrOr("title"), text) ||
				page.Matches(n.AttrOr("alt"), text)
		})
	}},
}, clickStrategies...)

// ResolveHover locates a hover target among a wider set of interactive
// elements than clicks consider, falling back to the click rules.
func ResolveHover(doc *page.Node, t Target) (Match, error) {
	if t.IsRef() {
		return Resolve(doc, t)
	}
	root := doc.Body()
	if t.Scope != "" {
		if c := Container(doc, t.Scope); c != nil {
			root = c
		}
	}
	if n, name := firstMatch(hoverStrategies, root, doc, t.Text); n != nil {
		return Match{Node: n, Strategy: name}, nil
	}
	return Match{}, notFound("Element", t.Text)
}
