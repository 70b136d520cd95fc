// File: internal/browser/htmlpage/input.go
package htmlpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pwscript/internal/page"
)

var errDetached = errors.New("node does not belong to this page")

func handle(n *page.Node) (*html.Node, error) {
	if n == nil {
		return nil, errDetached
	}
	h, ok := n.Handle.(*html.Node)
	if !ok || h == nil {
		return nil, errDetached
	}
	return h, nil
}

func attr(h *html.Node, key string) (string, bool) {
	for _, a := range h.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(h *html.Node, key, val string) {
	for i, a := range h.Attr {
		if strings.EqualFold(a.Key, key) {
			h.Attr[i].Val = val
			return
		}
	}
	h.Attr = append(h.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(h *html.Node, key string) {
	out := h.Attr[:0]
	for _, a := range h.Attr {
		if !strings.EqualFold(a.Key, key) {
			out = append(out, a)
		}
	}
	h.Attr = out
}

func isChecked(h *html.Node) bool {
	if _, ok := attr(h, "checked"); ok && h.Data == "input" {
		return true
	}
	v, _ := attr(h, "aria-checked")
	return strings.EqualFold(v, "true")
}

func setChecked(h *html.Node, on bool) {
	if h.Data == "input" {
		if on {
			setAttr(h, "checked", "")
		} else {
			removeAttr(h, "checked")
		}
		return
	}
	setAttr(h, "aria-checked", fmt.Sprintf("%t", on))
}

func describeNode(h *html.Node) string {
	if id, ok := attr(h, "id"); ok && id != "" {
		return h.Data + "#" + id
	}
	return h.Data
}

func rootOf(n *page.Node) *page.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func (p *Page) ScrollIntoView(ctx context.Context, n *page.Node) error {
	h, err := handle(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("scroll %s", describeNode(h))
	return nil
}

// BoxCenter lays elements out on a fixed grid, one row per element in
// document order.
func (p *Page) BoxCenter(ctx context.Context, n *page.Node) (page.Point, error) {
	h, err := handle(n)
	if err != nil {
		return page.Point{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	row := 0
	for _, e := range page.FromHTML(p.root).Elements() {
		if e.Handle == h {
			return page.Point{X: 100, Y: float64(row*24 + 12)}, nil
		}
		row++
	}
	return page.Point{}, errDetached
}

func (p *Page) MovePointer(ctx context.Context, pt page.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("move %.0f,%.0f", pt.X, pt.Y)
	return nil
}

// Click applies the default action of n clickCount times: checkables toggle,
// labels forward to their control and links navigate within the site.
func (p *Page) Click(ctx context.Context, n *page.Node, clickCount int) error {
	h, err := handle(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < clickCount; i++ {
		p.record("click %s", describeNode(h))
		if err := p.activate(n, h); err != nil {
			return err
		}
	}
	return nil
}

func (p *Page) activate(n *page.Node, h *html.Node) error {
	target := n
	if !page.IsCheckable(target) {
		if lbl := n.Closest(func(e *page.Node) bool { return e.Tag == "label" }); lbl != nil {
			if c := lbl.LabelTarget(rootOf(n)); c != nil {
				target = c
			}
		}
	}
	if page.IsCheckable(target) {
		th, err := handle(target)
		if err != nil {
			return err
		}
		if _, disabled := attr(th, "disabled"); disabled {
			return nil
		}
		p.toggle(th)
		return nil
	}

	link := goquery.NewDocumentFromNode(p.root).FindNodes(h).Closest("a[href]")
	if link.Length() == 0 {
		return nil
	}
	href, _ := link.Attr("href")
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return nil
	}
	next, err := p.resolve(href)
	if err != nil {
		return err
	}
	return p.push(next)
}

func (p *Page) toggle(h *html.Node) {
	typ, _ := attr(h, "type")
	if strings.EqualFold(typ, "radio") {
		name, _ := attr(h, "name")
		if name != "" {
			goquery.NewDocumentFromNode(p.root).Find("input[type=radio]").Each(func(_ int, s *goquery.Selection) {
				if other, _ := s.Attr("name"); other == name {
					setChecked(s.Get(0), false)
				}
			})
		}
		setChecked(h, true)
		return
	}
	setChecked(h, !isChecked(h))
}

func (p *Page) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	if p.current < 0 {
		return ref.String(), nil
	}
	base, err := url.Parse(p.history[p.current].url)
	if err != nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func (p *Page) Focus(ctx context.Context, n *page.Node) error {
	h, err := handle(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = h
	p.record("focus %s", describeNode(h))
	return nil
}

func (p *Page) SetValue(ctx context.Context, n *page.Node, value string) error {
	h, err := handle(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setValue(h, value)
	p.record("value %s=%q", describeNode(h), value)
	return nil
}

func (p *Page) setValue(h *html.Node, value string) {
	switch h.Data {
	case "select":
		goquery.NewDocumentFromNode(h).Find("option").Each(func(_ int, s *goquery.Selection) {
			v, ok := s.Attr("value")
			if !ok {
				v = strings.TrimSpace(s.Text())
			}
			if v == value {
				setAttr(s.Get(0), "selected", "")
			} else {
				removeAttr(s.Get(0), "selected")
			}
		})
	case "input":
		setAttr(h, "value", value)
	default:
		for c := h.FirstChild; c != nil; {
			next := c.NextSibling
			h.RemoveChild(c)
			c = next
		}
		if value != "" {
			h.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		}
	}
}

func currentValue(h *html.Node) string {
	if h.Data == "input" {
		v, _ := attr(h, "value")
		return v
	}
	return goquery.NewDocumentFromNode(h).Text()
}

func (p *Page) InsertText(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.focused == nil {
		return errors.New("no focused element")
	}
	p.setValue(p.focused, currentValue(p.focused)+text)
	p.record("insert %q", text)
	return nil
}

func (p *Page) DispatchEvent(ctx context.Context, n *page.Node, eventType string) error {
	h, err := handle(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("event %s %s", eventType, describeNode(h))
	return nil
}

func (p *Page) DispatchKey(ctx context.Context, ev page.KeyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("%s %s", ev.Type, ev.Key)
	return nil
}
