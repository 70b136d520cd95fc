// File: internal/browser/browser_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pwscript/internal/config"
	"github.com/xkilldash9x/pwscript/internal/page"
	"github.com/xkilldash9x/pwscript/internal/recorder"
)

func flagValue(flags []flag, name string) (any, bool) {
	var (
		v     any
		found bool
	)
	for _, f := range flags {
		if f.name == name {
			v, found = f.value, true
		}
	}
	return v, found
}

func TestLaunchFlags(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{Headless: true})
		v, ok := flagValue(flags, "headless")
		require.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "enable-automation")
		assert.Equal(t, false, v)
		_, ok = flagValue(flags, "ignore-certificate-errors")
		assert.False(t, ok)
	})

	t.Run("Headful", func(t *testing.T) {
		v, _ := flagValue(launchFlags(config.BrowserConfig{}), "headless")
		assert.Equal(t, false, v)
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		_, ok := flagValue(flags, "ignore-certificate-errors")
		assert.True(t, ok)
		_, ok = flagValue(flags, "allow-insecure-localhost")
		assert.True(t, ok)
	})

	t.Run("CustomArgs", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{
			Headless: true,
			Args:     []string{"--custom-arg1", "--lang=nl-NL", "--headless=new", "--"},
		})
		v, ok := flagValue(flags, "custom-arg1")
		require.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "lang")
		assert.Equal(t, "nl-NL", v)
		v, _ = flagValue(flags, "headless")
		assert.Equal(t, "new", v, "custom args override built in flags")
		_, ok = flagValue(flags, "")
		assert.False(t, ok)
	})
}

func TestDefaultAllocatorOptions(t *testing.T) {
	cfg := config.BrowserConfig{Headless: true}
	base := len(chromedp.DefaultExecAllocatorOptions) + len(launchFlags(cfg))
	assert.Len(t, DefaultAllocatorOptions(cfg), base)

	cfg.Viewport = config.ViewportConfig{Width: 1280, Height: 720}
	assert.Len(t, DefaultAllocatorOptions(cfg), base+1, "a viewport adds the window size")
}

func TestConvertNode(t *testing.T) {
	root := &cdp.Node{
		NodeType:      cdp.NodeTypeDocument,
		NodeName:      "#document",
		BackendNodeID: 1,
		Children: []*cdp.Node{
			{NodeType: cdp.NodeTypeDocumentType, NodeName: "html"},
			{
				NodeType: cdp.NodeTypeElement, NodeName: "HTML", LocalName: "html", BackendNodeID: 2,
				Children: []*cdp.Node{{
					NodeType: cdp.NodeTypeElement, NodeName: "BODY", LocalName: "body", BackendNodeID: 3,
					Children: []*cdp.Node{
						{NodeType: cdp.NodeTypeComment, NodeValue: "ignored"},
						{
							NodeType: cdp.NodeTypeElement, NodeName: "BUTTON", LocalName: "button", BackendNodeID: 4,
							Attributes: []string{"ID", "save", "aria-label", "Save it"},
							Children:   []*cdp.Node{{NodeType: cdp.NodeTypeText, NodeValue: " Save "}},
						},
					},
				}},
			},
		},
	}

	doc := convertNode(root)
	require.NotNil(t, doc)
	assert.Equal(t, page.DocumentNode, doc.Type)

	elems := doc.Elements()
	tags := make([]string, 0, len(elems))
	for _, e := range elems {
		tags = append(tags, e.Tag)
	}
	if diff := cmp.Diff([]string{"html", "body", "button"}, tags); diff != "" {
		t.Errorf("element tags mismatch (-want +got):\n%s", diff)
	}

	btn := elems[2]
	assert.Equal(t, "Save", btn.Text())
	assert.Equal(t, "save", btn.AttrOr("id"), "attribute names are lowercased")
	assert.Equal(t, "Save it", btn.AttrOr("aria-label"))
	assert.Equal(t, cdp.BackendNodeID(4), btn.Handle)
	assert.Same(t, elems[1], btn.Parent)

	id, err := backendID(btn)
	require.NoError(t, err)
	assert.Equal(t, cdp.BackendNodeID(4), id)

	assert.Nil(t, convertNode(nil))
}

func TestBackendIDRejectsForeignNodes(t *testing.T) {
	_, err := backendID(nil)
	assert.Error(t, err)
	_, err = backendID(page.NewElement("div", nil))
	assert.EqualError(t, err, "element div is not attached to this page")
}

func TestQuadCenter(t *testing.T) {
	pt, ok := quadCenter([]float64{10, 20, 30, 20, 30, 60, 10, 60})
	require.True(t, ok)
	assert.Equal(t, page.Point{X: 20, Y: 40}, pt)

	_, ok = quadCenter([]float64{1, 2})
	assert.False(t, ok)
}

func TestFlattenAX(t *testing.T) {
	nodes := []rawAXNode{
		{NodeID: "3", ParentID: "1", Role: &rawAXValue{"button"}, Name: &rawAXValue{"Save"}},
		{NodeID: "1", Role: &rawAXValue{"RootWebArea"}, Name: &rawAXValue{"Shop"}, ChildIDs: []string{"2", "3"}},
		{NodeID: "2", ParentID: "1", Ignored: true, Role: &rawAXValue{"generic"}, ChildIDs: []string{"4"}},
		{NodeID: "4", ParentID: "2", Role: &rawAXValue{"heading"}, Name: &rawAXValue{float64(2)}},
	}

	want := []page.AXNode{
		{Role: "RootWebArea", Name: "Shop"},
		{Role: "generic", Ignored: true},
		{Role: "heading", Name: "2"},
		{Role: "button", Name: "Save"},
	}
	if diff := cmp.Diff(want, flattenAX(nodes)); diff != "" {
		t.Errorf("flattened tree mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalResult(t *testing.T) {
	assert.True(t, evalResult(&runtime.RemoteObject{Type: runtime.TypeUndefined}, nil).Undefined)

	exc := &runtime.ExceptionDetails{
		Text:      "Uncaught",
		Exception: &runtime.RemoteObject{Description: "ReferenceError: nope is not defined"},
	}
	assert.Equal(t, "ReferenceError: nope is not defined", evalResult(nil, exc).Exception)
	assert.Equal(t, "Uncaught", evalResult(nil, &runtime.ExceptionDetails{Text: "Uncaught"}).Exception)

	obj := &runtime.RemoteObject{Type: runtime.TypeNumber}
	obj.Value = []byte(`{"a":1}`)
	assert.JSONEq(t, `{"a":1}`, string(evalResult(obj, nil).Value))

	nan := &runtime.RemoteObject{Type: runtime.TypeNumber, UnserializableValue: "NaN"}
	assert.Equal(t, `"NaN"`, string(evalResult(nan, nil).Value))
}

func newTestPage(t *testing.T) *Page {
	t.Helper()
	return newPage(context.Background(), nil, zaptest.NewLogger(t))
}

func TestWaitForLoad(t *testing.T) {
	p := newTestPage(t)
	require.NoError(t, p.WaitForLoad(context.Background()), "nothing pending after creation")

	p.armLoad()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.WaitForLoad(ctx), context.DeadlineExceeded)

	go p.handleEvent(&cdppage.EventLoadEventFired{})
	require.NoError(t, p.WaitForLoad(context.Background()))

	// A second load event for the same navigation is harmless.
	p.handleEvent(&cdppage.EventLoadEventFired{})
}

func TestFailedNavigationReleasesLoadWait(t *testing.T) {
	p := newTestPage(t)
	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")
	calls := 0
	p.runActions = func(context.Context, ...chromedp.Action) error {
		calls++
		return boom
	}

	assert.ErrorIs(t, p.Navigate(context.Background(), "https://nowhere.test"), boom)
	assert.ErrorIs(t, p.Reload(context.Background()), boom)
	assert.ErrorIs(t, p.NavigateToHistoryEntry(context.Background(), 3), boom)
	assert.Equal(t, 3, calls)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.WaitForLoad(ctx))
}

func TestInputNeedsLiveNodes(t *testing.T) {
	p := newTestPage(t)
	p.runActions = func(context.Context, ...chromedp.Action) error {
		t.Fatal("no protocol call expected")
		return nil
	}
	detached := page.NewElement("button", nil)
	ctx := context.Background()

	assert.Error(t, p.Click(ctx, detached, 1))
	assert.Error(t, p.Focus(ctx, detached))
	assert.Error(t, p.ScrollIntoView(ctx, detached))
	assert.Error(t, p.SetValue(ctx, detached, "x"))
	_, err := p.Checked(ctx, detached)
	assert.Error(t, err)
}

func TestRecordEvent(t *testing.T) {
	p := newTestPage(t)

	ev, ok := p.recordEvent(&runtime.EventBindingCalled{
		Name:    recordBinding,
		Payload: `{"kind":"click","target":{"tag":"button","text":"Save","hasClickHandler":true}}`,
	})
	require.True(t, ok)
	assert.Equal(t, recorder.Event{
		Kind:   recorder.EventClick,
		Target: recorder.TargetInfo{Tag: "button", Text: "Save", HasClickHandler: true},
	}, ev)

	_, ok = p.recordEvent(&runtime.EventBindingCalled{Name: "somethingElse", Payload: `{}`})
	assert.False(t, ok)
	_, ok = p.recordEvent(&runtime.EventBindingCalled{Name: recordBinding, Payload: `{not json`})
	assert.False(t, ok)

	ev, ok = p.recordEvent(&cdppage.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", URL: "https://shop.test/cart"}})
	require.True(t, ok)
	assert.Equal(t, recorder.Event{Kind: recorder.EventNavigate, URL: "https://shop.test/cart", MainFrame: true}, ev)

	_, ok = p.recordEvent(&cdppage.EventFrameNavigated{Frame: &cdp.Frame{ID: "ad", ParentID: "main", URL: "https://ads.test"}})
	assert.False(t, ok, "child frame navigations are not recorded")

	_, ok = p.recordEvent(&cdppage.EventLoadEventFired{})
	assert.False(t, ok)
}

func TestCombineContext(t *testing.T) {
	type key struct{}
	primary := context.WithValue(context.Background(), key{}, "tab")
	secondary, cancelSecondary := context.WithCancel(context.Background())

	ctx, cancel := combineContext(primary, secondary)
	defer cancel()
	assert.Equal(t, "tab", ctx.Value(key{}))
	assert.NoError(t, ctx.Err())

	cancelSecondary()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not cancelled with the secondary")
	}
}
