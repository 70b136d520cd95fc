// File: internal/browser/page.go
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/page"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Page drives one browser tab over the DevTools protocol.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	// runActions is a field so tests can intercept protocol traffic.
	runActions func(ctx context.Context, actions ...chromedp.Action) error

	mu     sync.Mutex
	loaded chan struct{}
	closed bool
}

var _ page.Page = (*Page)(nil)

// newPage wraps a chromedp tab context. cancel closes the tab.
func newPage(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Page {
	loaded := make(chan struct{})
	close(loaded)
	p := &Page{
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.Named("page"),
		loaded: loaded,
	}
	p.runActions = p.run
	return p
}

// listen subscribes to tab events. It must run after the tab exists.
func (p *Page) listen() {
	chromedp.ListenTarget(p.ctx, p.handleEvent)
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (p *Page) handleEvent(ev any) {
	if _, ok := ev.(*cdppage.EventLoadEventFired); ok {
		p.signalLoad()
	}
}

func (p *Page) armLoad() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.loaded:
		p.loaded = make(chan struct{})
	default:
	}
}

func (p *Page) signalLoad() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.loaded:
	default:
		close(p.loaded)
	}
}

// Close closes the tab. It is safe to call more than once.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
}

// -- Navigator --

type navigateResult struct {
	ErrorText string `json:"errorText"`
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.armLoad()
	var res navigateResult
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdp.Execute(ctx, cdppage.CommandNavigate, cdppage.Navigate(url), &res)
	}))
	if err != nil {
		p.signalLoad()
		return err
	}
	if res.ErrorText != "" {
		p.signalLoad()
		return fmt.Errorf("navigation to %s failed: %s", url, res.ErrorText)
	}
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.armLoad()
	if err := p.runActions(ctx, cdppage.Reload()); err != nil {
		p.signalLoad()
		return err
	}
	return nil
}

func (p *Page) History(ctx context.Context) (int, []page.HistoryEntry, error) {
	var (
		current int64
		entries []*cdppage.NavigationEntry
	)
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		current, entries, err = cdppage.GetNavigationHistory().Do(ctx)
		return err
	}))
	if err != nil {
		return 0, nil, err
	}
	out := make([]page.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, page.HistoryEntry{ID: e.ID, URL: e.URL, Title: e.Title})
	}
	return int(current), out, nil
}

func (p *Page) NavigateToHistoryEntry(ctx context.Context, id int64) error {
	p.armLoad()
	if err := p.runActions(ctx, cdppage.NavigateToHistoryEntry(id)); err != nil {
		p.signalLoad()
		return err
	}
	return nil
}

func (p *Page) WaitForLoad(ctx context.Context) error {
	p.mu.Lock()
	ch := p.loaded
	p.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -- Reader --

func (p *Page) Document(ctx context.Context) (*page.Node, error) {
	var root *cdp.Node
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		root, err = dom.GetDocument().WithDepth(-1).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	doc := convertNode(root)
	if doc == nil {
		return nil, errors.New("empty document")
	}
	return doc, nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.runActions(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (p *Page) BodyText(ctx context.Context) (string, error) {
	var text string
	err := p.runActions(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	if err != nil {
		return "", err
	}
	return text, nil
}

const checkedFn = `function() {
	if ('checked' in this && (this.type === 'checkbox' || this.type === 'radio')) return this.checked;
	return this.getAttribute('aria-checked') === 'true';
}`

func (p *Page) Checked(ctx context.Context, n *page.Node) (bool, error) {
	var checked bool
	if err := p.callOn(ctx, n, checkedFn, &checked); err != nil {
		return false, err
	}
	return checked, nil
}

func (p *Page) AccessibilityTree(ctx context.Context) ([]page.AXNode, error) {
	var tree rawAXTree
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdp.Execute(ctx, accessibility.CommandGetFullAXTree, accessibility.GetFullAXTree(), &tree)
	}))
	if err != nil {
		return nil, err
	}
	return flattenAX(tree.Nodes), nil
}

// -- Input --

func (p *Page) ScrollIntoView(ctx context.Context, n *page.Node) error {
	id, err := backendID(n)
	if err != nil {
		return err
	}
	return p.runActions(ctx, dom.ScrollIntoViewIfNeeded().WithBackendNodeID(id))
}

func (p *Page) BoxCenter(ctx context.Context, n *page.Node) (page.Point, error) {
	id, err := backendID(n)
	if err != nil {
		return page.Point{}, err
	}
	var box *dom.BoxModel
	err = p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithBackendNodeID(id).Do(ctx)
		return err
	}))
	if err != nil {
		return page.Point{}, err
	}
	pt, ok := quadCenter(box.Content)
	if !ok {
		return page.Point{}, fmt.Errorf("element %s has no layout box", n.Tag)
	}
	return pt, nil
}

func (p *Page) MovePointer(ctx context.Context, pt page.Point) error {
	return p.runActions(ctx, input.DispatchMouseEvent(input.MouseMoved, pt.X, pt.Y))
}

func (p *Page) Click(ctx context.Context, n *page.Node, clickCount int) error {
	pt, err := p.BoxCenter(ctx, n)
	if err != nil {
		return err
	}
	actions := []chromedp.Action{input.DispatchMouseEvent(input.MouseMoved, pt.X, pt.Y)}
	for i := 1; i <= clickCount; i++ {
		actions = append(actions,
			input.DispatchMouseEvent(input.MousePressed, pt.X, pt.Y).WithButton(input.Left).WithClickCount(int64(i)),
			input.DispatchMouseEvent(input.MouseReleased, pt.X, pt.Y).WithButton(input.Left).WithClickCount(int64(i)),
		)
	}
	return p.runActions(ctx, actions...)
}

func (p *Page) Focus(ctx context.Context, n *page.Node) error {
	id, err := backendID(n)
	if err != nil {
		return err
	}
	return p.runActions(ctx, dom.Focus().WithBackendNodeID(id))
}

func (p *Page) SetValue(ctx context.Context, n *page.Node, value string) error {
	fn := `function() {
	const v = ` + strconv.Quote(value) + `;
	if (this.isContentEditable) { this.textContent = v; return; }
	this.value = v;
}`
	return p.callOn(ctx, n, fn, nil)
}

func (p *Page) InsertText(ctx context.Context, text string) error {
	return p.runActions(ctx, input.InsertText(text))
}

func (p *Page) DispatchEvent(ctx context.Context, n *page.Node, eventType string) error {
	fn := `function() { this.dispatchEvent(new Event(` + strconv.Quote(eventType) + `, { bubbles: true })); }`
	return p.callOn(ctx, n, fn, nil)
}

func (p *Page) DispatchKey(ctx context.Context, ev page.KeyEvent) error {
	typ := input.KeyUp
	if ev.Type == page.KeyDown {
		typ = input.KeyRawDown
		if ev.Text != "" {
			typ = input.KeyDown
		}
	}
	action := input.DispatchKeyEvent(typ).
		WithKey(ev.Key).
		WithCode(ev.Code).
		WithWindowsVirtualKeyCode(ev.KeyCode).
		WithNativeVirtualKeyCode(ev.KeyCode)
	if ev.Text != "" && ev.Type == page.KeyDown {
		action = action.WithText(ev.Text).WithUnmodifiedText(ev.Text)
	}
	return p.runActions(ctx, action)
}

// callOn runs fn with this bound to the live node of n and decodes the
// returned value into out when out is non-nil.
func (p *Page) callOn(ctx context.Context, n *page.Node, fn string, out any) error {
	id, err := backendID(n)
	if err != nil {
		return err
	}
	return p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		defer func() {
			if err := runtime.ReleaseObject(obj.ObjectID).Do(ctx); err != nil {
				p.logger.Debug("Failed to release remote object.", zap.Error(err))
			}
		}()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return errors.New(exceptionText(exc))
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}

// -- Inspector --

func (p *Page) Evaluate(ctx context.Context, expression string) (page.EvalResult, error) {
	var out page.EvalResult
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(expression).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			WithUserGesture(true).
			Do(ctx)
		if err != nil {
			return err
		}
		out = evalResult(res, exc)
		return nil
	}))
	if err != nil {
		return page.EvalResult{}, err
	}
	return out, nil
}

func evalResult(res *runtime.RemoteObject, exc *runtime.ExceptionDetails) page.EvalResult {
	if exc != nil {
		return page.EvalResult{Exception: exceptionText(exc)}
	}
	if res == nil || res.Type == runtime.TypeUndefined {
		return page.EvalResult{Undefined: true}
	}
	if len(res.Value) == 0 {
		// Values that cannot be serialized, e.g. functions or NaN, only
		// carry a description.
		if res.UnserializableValue != "" {
			return page.EvalResult{Value: []byte(strconv.Quote(string(res.UnserializableValue)))}
		}
		return page.EvalResult{Value: []byte(strconv.Quote(res.Description))}
	}
	return page.EvalResult{Value: []byte(res.Value)}
}

func exceptionText(exc *runtime.ExceptionDetails) string {
	if exc.Exception != nil && exc.Exception.Description != "" {
		return exc.Exception.Description
	}
	return exc.Text
}

func (p *Page) ContentSize(ctx context.Context) (float64, float64, error) {
	var size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	const expr = `(() => {
	const d = document.documentElement, b = document.body || d;
	return { width: Math.max(d.scrollWidth, b.scrollWidth), height: Math.max(d.scrollHeight, b.scrollHeight) };
})()`
	if err := p.runActions(ctx, chromedp.Evaluate(expr, &size)); err != nil {
		return 0, 0, err
	}
	return size.Width, size.Height, nil
}

func (p *Page) SetViewportOverride(ctx context.Context, width, height int64) error {
	return p.runActions(ctx, emulation.SetDeviceMetricsOverride(width, height, 1, false))
}

func (p *Page) ClearViewportOverride(ctx context.Context) error {
	return p.runActions(ctx, emulation.ClearDeviceMetricsOverride())
}

func (p *Page) CaptureScreenshot(ctx context.Context, clip *page.Clip) ([]byte, error) {
	params := cdppage.CaptureScreenshot().WithFormat(cdppage.CaptureScreenshotFormatPng)
	if clip != nil {
		params = params.
			WithClip(&cdppage.Viewport{X: clip.X, Y: clip.Y, Width: clip.Width, Height: clip.Height, Scale: 1}).
			WithCaptureBeyondViewport(true)
	}
	var res struct {
		Data string `json:"data"`
	}
	err := p.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdp.Execute(ctx, cdppage.CommandCaptureScreenshot, params, &res)
	}))
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(res.Data)
}
