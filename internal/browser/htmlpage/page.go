// File: internal/browser/htmlpage/page.go
package htmlpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pwscript/internal/page"
)

// ErrNoDocument is returned when a navigation targets a URL the site does not
// serve and no fallback document is configured.
var ErrNoDocument = errors.New("no document for url")

// blankDocument is what about:blank renders.
const blankDocument = `<html><head><title></title></head><body></body></html>`

type entry struct {
	url string
}

// Page implements page.Page over static HTML documents. Navigation re-parses
// the served document, so state changes made by input are lost on reload like
// in a browser without storage. Script evaluation and capture are not
// supported.
type Page struct {
	mu       sync.Mutex
	logger   *zap.Logger
	site     map[string]string
	fallback string
	hasFB    bool

	root    *html.Node
	focused *html.Node
	history []entry
	current int
	log     []string
}

// Option configures a Page.
type Option func(*Page)

// WithFallback serves doc for every URL the site does not contain.
func WithFallback(doc string) Option {
	return func(p *Page) {
		p.fallback = doc
		p.hasFB = true
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) { p.logger = logger.Named("htmlpage") }
}

// New creates a page serving site, a map from absolute URL to HTML source.
// The page starts at about:blank.
func New(site map[string]string, opts ...Option) *Page {
	p := &Page{
		logger:  zap.NewNop(),
		site:    make(map[string]string, len(site)),
		current: -1,
	}
	for u, doc := range site {
		p.site[u] = doc
	}
	for _, opt := range opts {
		opt(p)
	}
	p.root, _ = html.Parse(strings.NewReader(blankDocument))
	return p
}

// FromFile creates a page serving the file at path for every URL, which is
// how offline dry runs replay scripts against a saved document.
func FromFile(path string, opts ...Option) (*Page, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	p := New(map[string]string{fileURL: string(data)}, append(opts, WithFallback(string(data)))...)
	if err := p.Navigate(context.Background(), fileURL); err != nil {
		return nil, err
	}
	return p, nil
}

// Log returns the input primitives dispatched so far, e.g. "click button".
func (p *Page) Log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.log))
	copy(out, p.log)
	return out
}

func (p *Page) record(format string, args ...any) {
	p.log = append(p.log, fmt.Sprintf(format, args...))
}

// -- Navigator --

func (p *Page) load(rawURL string) error {
	src, ok := p.site[rawURL]
	switch {
	case ok:
	case strings.HasPrefix(rawURL, "about:blank"):
		src = blankDocument
	case p.hasFB:
		src = p.fallback
	default:
		return fmt.Errorf("%w: %s", ErrNoDocument, rawURL)
	}
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("failed to parse document for %s: %w", rawURL, err)
	}
	p.root = root
	p.focused = nil
	return nil
}

func (p *Page) push(rawURL string) error {
	if err := p.load(rawURL); err != nil {
		return err
	}
	p.history = append(p.history[:p.current+1], entry{url: rawURL})
	p.current = len(p.history) - 1
	p.logger.Debug("Navigated.", zap.String("url", rawURL))
	return nil
}

func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.push(rawURL)
}

func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < 0 {
		return p.load("about:blank")
	}
	return p.load(p.history[p.current].url)
}

func (p *Page) History(ctx context.Context) (int, []page.HistoryEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := make([]page.HistoryEntry, len(p.history))
	for i, e := range p.history {
		entries[i] = page.HistoryEntry{ID: int64(i + 1), URL: e.url}
	}
	if p.current >= 0 {
		entries[p.current].Title = p.titleLocked()
	}
	return p.current, entries, nil
}

func (p *Page) NavigateToHistoryEntry(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(p.history) {
		return fmt.Errorf("unknown history entry %d", id)
	}
	if err := p.load(p.history[idx].url); err != nil {
		return err
	}
	p.current = idx
	return nil
}

// WaitForLoad returns at once: documents load synchronously.
func (p *Page) WaitForLoad(ctx context.Context) error {
	return ctx.Err()
}

// -- Reader --

func (p *Page) Document(ctx context.Context) (*page.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return page.FromHTML(p.root), nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < 0 {
		return "about:blank", nil
	}
	return p.history[p.current].url, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.titleLocked(), nil
}

func (p *Page) titleLocked() string {
	doc := goquery.NewDocumentFromNode(p.root)
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func (p *Page) BodyText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	body := goquery.NewDocumentFromNode(p.root).Find("body").First().Clone()
	body.Find("script, style").Remove()
	return page.Normalize(body.Text()), nil
}

func (p *Page) Checked(ctx context.Context, n *page.Node) (bool, error) {
	h, err := handle(n)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return isChecked(h), nil
}

func (p *Page) AccessibilityTree(ctx context.Context) ([]page.AXNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return accessibilityTree(page.FromHTML(p.root), p.titleLocked()), nil
}

// -- Inspector --

func (p *Page) Evaluate(ctx context.Context, expression string) (page.EvalResult, error) {
	return page.EvalResult{}, page.ErrUnsupported
}

func (p *Page) ContentSize(ctx context.Context) (float64, float64, error) {
	return 0, 0, page.ErrUnsupported
}

func (p *Page) SetViewportOverride(ctx context.Context, width, height int64) error {
	return nil
}

func (p *Page) ClearViewportOverride(ctx context.Context) error {
	return nil
}

func (p *Page) CaptureScreenshot(ctx context.Context, clip *page.Clip) ([]byte, error) {
	return nil, page.ErrUnsupported
}

var _ page.Page = (*Page)(nil)
