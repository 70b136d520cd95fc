// File: internal/page/node_test.go
package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<!doctype html>
<html><head><title>T</title><script>var x = "hidden";</script></head>
<body>
  <label for="email">E-mail</label><input id="email" placeholder="you@example.com">
  <label>Remember <input type="checkbox" name="remember"></label>
  <ul><li><span>Buy   milk</span> <button>Delete</button></li></ul>
  <div contenteditable="true" aria-label="Notes"></div>
  <input type="hidden" id="csrf">
</body></html>`

func TestElementsDocumentOrder(t *testing.T) {
	doc := MustParseHTML(fixture)
	elems := doc.Elements()
	require.NotEmpty(t, elems)

	var tags []string
	for _, e := range elems {
		tags = append(tags, e.Tag)
	}
	assert.Equal(t, []string{
		"html", "head", "title", "script", "body",
		"label", "input", "label", "input", "ul", "li", "span", "button",
		"div", "input",
	}, tags)
	assert.Nil(t, elems[0].Closest(func(n *Node) bool { return n.Tag == "body" }))
}

func TestTextContent(t *testing.T) {
	doc := MustParseHTML(fixture)
	li := doc.First(func(n *Node) bool { return n.Tag == "li" })
	require.NotNil(t, li)
	assert.Equal(t, "Buy milk Delete", li.Text())
	assert.False(t, li.IsLeaf())

	head := doc.First(func(n *Node) bool { return n.Tag == "head" })
	assert.Equal(t, "T", head.Text(), "script bodies are not text")
}

func TestLabels(t *testing.T) {
	doc := MustParseHTML(fixture)
	email := doc.ByID("email")
	require.NotNil(t, email)

	labels := LabelsOf(doc, email)
	require.Len(t, labels, 1)
	assert.Equal(t, "E-mail", labels[0].Text())
	assert.Same(t, email, labels[0].LabelTarget(doc))

	box := doc.First(func(n *Node) bool { return n.AttrOr("name") == "remember" })
	require.NotNil(t, box)
	wrapping := LabelsOf(doc, box)
	require.Len(t, wrapping, 1)
	assert.Same(t, box, wrapping[0].LabelTarget(doc))
	assert.True(t, IsCheckable(box))
}

func TestPredicates(t *testing.T) {
	doc := MustParseHTML(fixture)

	assert.True(t, IsEditable(doc.ByID("email")))
	assert.False(t, IsLabelable(doc.ByID("csrf")))
	notes := doc.First(func(n *Node) bool { return n.AttrOr("aria-label") == "Notes" })
	assert.True(t, IsEditable(notes))

	assert.True(t, Matches("  Buy  milk ", "buy milk"))
	assert.True(t, ContainsFold("Buy milk Delete", "MILK"))
	assert.False(t, Matches("Buy milk", "milk"))
}

func TestContainsAndDepth(t *testing.T) {
	doc := MustParseHTML(fixture)
	body := doc.Body()
	btn := doc.First(func(n *Node) bool { return n.Tag == "button" })
	assert.True(t, body.Contains(btn))
	assert.False(t, btn.Contains(body))
	assert.Greater(t, btn.Depth(), body.Depth())
}
