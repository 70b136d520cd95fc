// File: internal/browser/dom.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"

	"github.com/xkilldash9x/pwscript/internal/page"
)

// convertNode turns a CDP DOM tree into a page snapshot. Element handles
// are backend node ids, which stay valid across DOM agent resets.
// Frames, shadow roots and template contents are not descended into.
func convertNode(n *cdp.Node) *page.Node {
	if n == nil {
		return nil
	}
	var out *page.Node
	switch n.NodeType {
	case cdp.NodeTypeDocument:
		out = &page.Node{Type: page.DocumentNode}
	case cdp.NodeTypeElement:
		tag := n.LocalName
		if tag == "" {
			tag = n.NodeName
		}
		out = page.NewElement(tag, attrMap(n.Attributes))
	case cdp.NodeTypeText:
		return page.NewText(n.NodeValue)
	default:
		return nil
	}
	out.Handle = n.BackendNodeID

	for _, c := range n.Children {
		if child := convertNode(c); child != nil {
			out.AppendChild(child)
		}
	}
	return out
}

// attrMap converts the flat name/value list CDP reports.
func attrMap(flat []string) map[string]string {
	attrs := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs[strings.ToLower(flat[i])] = flat[i+1]
	}
	return attrs
}

func backendID(n *page.Node) (cdp.BackendNodeID, error) {
	if n == nil {
		return 0, fmt.Errorf("no element")
	}
	id, ok := n.Handle.(cdp.BackendNodeID)
	if !ok || id == 0 {
		return 0, fmt.Errorf("element %s is not attached to this page", n.Tag)
	}
	return id, nil
}

// quadCenter returns the midpoint of a four point quad.
func quadCenter(q []float64) (page.Point, bool) {
	if len(q) < 8 {
		return page.Point{}, false
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return page.Point{X: x / 4, Y: y / 4}, true
}

// rawAXValue is the role or name property of an AX node.
type rawAXValue struct {
	Value any `json:"value"`
}

type rawAXNode struct {
	NodeID   string      `json:"nodeId"`
	Ignored  bool        `json:"ignored"`
	Role     *rawAXValue `json:"role"`
	Name     *rawAXValue `json:"name"`
	ParentID string      `json:"parentId"`
	ChildIDs []string    `json:"childIds"`
}

// rawAXTree is decoded loosely; typed decoding fails on roles and property
// names newer than the protocol bindings.
type rawAXTree struct {
	Nodes []rawAXNode `json:"nodes"`
}

func axString(v *rawAXValue) string {
	if v == nil || v.Value == nil {
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	return fmt.Sprint(v.Value)
}

// flattenAX lists the tree in pre-order starting at the roots, i.e. nodes
// without a known parent, in the order the browser reported them.
func flattenAX(nodes []rawAXNode) []page.AXNode {
	byID := make(map[string]*rawAXNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].NodeID] = &nodes[i]
	}

	out := make([]page.AXNode, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	var visit func(n *rawAXNode)
	visit = func(n *rawAXNode) {
		if seen[n.NodeID] {
			return
		}
		seen[n.NodeID] = true
		out = append(out, page.AXNode{Role: axString(n.Role), Name: axString(n.Name), Ignored: n.Ignored})
		for _, id := range n.ChildIDs {
			if c, ok := byID[id]; ok {
				visit(c)
			}
		}
	}
	for i := range nodes {
		n := &nodes[i]
		if _, hasParent := byID[n.ParentID]; n.ParentID == "" || !hasParent {
			visit(n)
		}
	}
	return out
}
