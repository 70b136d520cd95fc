// File: internal/executor/executor_test.go
package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/browser/htmlpage"
	"github.com/xkilldash9x/pwscript/internal/mocks"
	"github.com/xkilldash9x/pwscript/internal/page"
)

const formPage = `<html><head><title>Signup form</title></head><body>
<h1>Create account</h1>
<label for="email">Email</label><input id="email" type="email">
<label for="cb">Accept terms</label><input id="cb" type="checkbox">
<select aria-label="Plan"><option value="free">Free</option><option value="pro">Pro</option></select>
<button>Submit</button>
<a href="/next">Next</a>
</body></html>`

func newStaticExecutor(t *testing.T, site map[string]string) (*Executor, *htmlpage.Page) {
	t.Helper()
	p := htmlpage.New(site)
	return New(p, zaptest.NewLogger(t), WithLoadTimeout(100*time.Millisecond)), p
}

func mustExec(t *testing.T, e *Executor, line string) schemas.Result {
	t.Helper()
	return e.ExecuteLine(context.Background(), line)
}

func TestScenarioGotoAssumesHTTPS(t *testing.T) {
	e, _ := newStaticExecutor(t, map[string]string{"https://example.com": formPage})
	res := mustExec(t, e, "goto example.com")
	assert.True(t, res.Success, res.Data)
	assert.Equal(t, schemas.KindSuccess, res.Kind)
	assert.Contains(t, res.Data, "https://example.com")
}

func TestScenarioClickRef(t *testing.T) {
	e, p := newStaticExecutor(t, map[string]string{
		"https://a.test/": `<html><head></head><body><p>a</p><p>b</p><button>Go</button></body></html>`,
	})
	require.True(t, mustExec(t, e, "goto https://a.test/").Success)

	res := mustExec(t, e, "click e5")
	require.True(t, res.Success, res.Data)
	assert.Equal(t, `Clicked p "b"`, res.Data)
	assert.Contains(t, p.Log(), "click p")

	res = mustExec(t, e, "click e7")
	assert.False(t, res.Success)
	assert.Equal(t, "Element not found: e7", res.Data)
}

func TestScenarioCheckByLabel(t *testing.T) {
	ctx := context.Background()
	e, p := newStaticExecutor(t, map[string]string{"https://f.test/": formPage})
	require.True(t, mustExec(t, e, "goto https://f.test/").Success)

	res := mustExec(t, e, `check "Accept terms"`)
	require.True(t, res.Success, res.Data)
	assert.Equal(t, `Checked "Accept terms"`, res.Data)

	doc, err := p.Document(ctx)
	require.NoError(t, err)
	checked, err := p.Checked(ctx, doc.ByID("cb"))
	require.NoError(t, err)
	assert.True(t, checked)

	clicks := len(p.Log())
	res = mustExec(t, e, `check "Accept terms"`)
	require.True(t, res.Success)
	assert.Contains(t, res.Data, "already checked")
	assert.Len(t, p.Log(), clicks, "an idempotent check dispatches nothing")

	res = mustExec(t, e, `uncheck "Accept terms"`)
	require.True(t, res.Success, res.Data)
	assert.Equal(t, `Unchecked "Accept terms"`, res.Data)
}

func TestScenarioVerifyTextFails(t *testing.T) {
	e, _ := newStaticExecutor(t, map[string]string{"https://f.test/": formPage})
	require.True(t, mustExec(t, e, "goto https://f.test/").Success)

	res := mustExec(t, e, `verify-text "Missing"`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Data, "FAIL")
	assert.Contains(t, res.Data, "not found")
	assert.False(t, res.Passed())

	res = mustExec(t, e, `verify-text "Create account"`)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Data, "PASS"))
}

func TestVerifyFamily(t *testing.T) {
	e, _ := newStaticExecutor(t, map[string]string{"https://f.test/signup": formPage})
	require.True(t, mustExec(t, e, "goto https://f.test/signup").Success)

	testCases := []struct {
		line string
		pass bool
	}{
		{`verify-no-text "Missing"`, true},
		{`verify-no-text "Email"`, false},
		{`verify-element "Submit"`, true},
		{`verify-element "Cancel"`, false},
		{`verify-no-element "Cancel"`, true},
		{`verify-no-element "Submit"`, false},
		{`verify-url "/signup"`, true},
		{`verify-url "/login"`, false},
		{`verify-title "Signup"`, true},
		{`verify-title "Login"`, false},
	}
	for _, tc := range testCases {
		res := mustExec(t, e, tc.line)
		assert.Equal(t, tc.pass, res.Success, tc.line)
		if tc.pass {
			assert.True(t, strings.HasPrefix(res.Data, "PASS: "), tc.line)
		} else {
			assert.True(t, strings.HasPrefix(res.Data, "FAIL: "), tc.line)
		}
	}
}

func TestFillSelectAndNavigationHistory(t *testing.T) {
	ctx := context.Background()
	e, p := newStaticExecutor(t, map[string]string{
		"https://f.test/":     formPage,
		"https://f.test/next": `<html><head><title>Next</title></head><body>Second</body></html>`,
	})
	require.True(t, mustExec(t, e, "goto https://f.test/").Success)

	res := mustExec(t, e, `fill "Email" "me@example.com"`)
	require.True(t, res.Success, res.Data)
	assert.Equal(t, `Filled input with "me@example.com"`, res.Data)
	doc, _ := p.Document(ctx)
	assert.Equal(t, "me@example.com", doc.ByID("email").AttrOr("value"))
	log := p.Log()
	assert.Equal(t, []string{"event input input#email", "event change input#email"}, log[len(log)-2:])

	res = mustExec(t, e, `select "Plan" "pro"`)
	require.True(t, res.Success, res.Data)
	assert.Equal(t, `Selected "Pro" in select "Plan"`, res.Data)

	res = mustExec(t, e, `select "Plan" "Enterprise"`)
	assert.Equal(t, "Option not found: Enterprise", res.Data)

	res = mustExec(t, e, `back`)
	assert.False(t, res.Success)
	assert.Equal(t, "Go-back failed: no previous page in history", res.Data)

	require.True(t, mustExec(t, e, `click "Next"`).Success)
	res = mustExec(t, e, "go-back")
	require.True(t, res.Success, res.Data)
	assert.Equal(t, "Navigated back to https://f.test/", res.Data)

	res = mustExec(t, e, "go-forward")
	require.True(t, res.Success, res.Data)
	assert.Equal(t, "Navigated forward to https://f.test/next", res.Data)

	res = mustExec(t, e, "forward")
	assert.Equal(t, "Go-forward failed: no next page in history", res.Data)

	res = mustExec(t, e, "reload")
	assert.Equal(t, schemas.Ok("Reloaded page"), res)
}

func TestUsageAndUnknownCommands(t *testing.T) {
	e, p := newStaticExecutor(t, nil)

	res := mustExec(t, e, "teleport home")
	assert.Equal(t, schemas.Fail("Unknown command: teleport. Type help to list commands."), res)

	res = mustExec(t, e, "fill Email")
	assert.Equal(t, `Usage: fill "<field>" "<text>"`, res.Data)
	assert.False(t, res.Success)

	res = mustExec(t, e, "press PageDown")
	assert.True(t, strings.HasPrefix(res.Data, "Usage: press <key>"), res.Data)

	res = mustExec(t, e, "screenshot tiny")
	assert.Equal(t, "Usage: screenshot [full]", res.Data)

	res = mustExec(t, e, "export")
	assert.Equal(t, "Usage: export needs an open script", res.Data)

	assert.Empty(t, p.Log(), "usage errors never touch the page")

	res = mustExec(t, e, "# just a comment")
	assert.Equal(t, schemas.Info("# just a comment"), res)
}

func TestPressDispatchesDownThenUp(t *testing.T) {
	e, p := newStaticExecutor(t, nil)

	res := mustExec(t, e, "press ENTER")
	require.True(t, res.Success)
	assert.Equal(t, "Pressed Enter", res.Data)

	res = mustExec(t, e, "p x")
	require.True(t, res.Success)
	assert.Equal(t, "Pressed x", res.Data)

	assert.Equal(t, []string{"keyDown Enter", "keyUp Enter", "keyDown x", "keyUp x"}, p.Log())
}

func TestPressKeyIdentity(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))

	mp.On("DispatchKey", mock.Anything, page.KeyEvent{Type: page.KeyDown, Key: "q", Code: "KeyQ", KeyCode: 'q', Text: "q"}).Return(nil).Once()
	mp.On("DispatchKey", mock.Anything, page.KeyEvent{Type: page.KeyUp, Key: "q", Code: "KeyQ", KeyCode: 'q'}).Return(nil).Once()

	res := mustExec(t, e, "press q")
	assert.True(t, res.Success)
	mp.AssertExpectations(t)
}

func TestCheckIsIdempotentWithoutClicking(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	doc := page.MustParseHTML(`<body><label for="cb">Accept</label><input id="cb" type="checkbox" checked></body>`)

	mp.On("Document", mock.Anything).Return(doc, nil)
	mp.On("Checked", mock.Anything, mock.Anything).Return(true, nil)

	res := mustExec(t, e, `check Accept`)
	assert.True(t, res.Success)
	mp.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckReportsStuckState(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	doc := page.MustParseHTML(`<body><input type="checkbox" aria-label="Locked"></body>`)

	mp.On("Document", mock.Anything).Return(doc, nil)
	mp.On("Checked", mock.Anything, mock.Anything).Return(false, nil)
	mp.On("ScrollIntoView", mock.Anything, mock.Anything).Return(nil)
	mp.On("Click", mock.Anything, mock.Anything, 1).Return(nil).Once()

	res := mustExec(t, e, `check Locked`)
	assert.False(t, res.Success)
	assert.Equal(t, "Check failed: checkbox is still unchecked after clicking", res.Data)
	mp.AssertExpectations(t)
}

func TestDriverErrorsAreWrapped(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	doc := page.MustParseHTML(`<body><button>Save</button></body>`)

	mp.On("Document", mock.Anything).Return(doc, nil)
	mp.On("ScrollIntoView", mock.Anything, mock.Anything).Return(nil)
	mp.On("Click", mock.Anything, mock.Anything, 1).Return(errors.New("Execution context was destroyed"))

	res := mustExec(t, e, `click Save`)
	assert.Equal(t, schemas.Fail("Click failed: Execution context was destroyed"), res)
}

func TestGotoProceedsOnLoadTimeout(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t), WithLoadTimeout(20*time.Millisecond))

	mp.On("Navigate", mock.Anything, "https://slow.test").Return(nil)
	mp.On("WaitForLoad", mock.Anything).Return(context.DeadlineExceeded).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	})

	res := mustExec(t, e, "open slow.test")
	assert.Equal(t, schemas.Ok("Navigated to https://slow.test"), res)
}

func TestHoverMovesPointerWithoutClicking(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	doc := page.MustParseHTML(`<body><div role="menuitem" tabindex="0">Account</div></body>`)

	mp.On("Document", mock.Anything).Return(doc, nil)
	mp.On("ScrollIntoView", mock.Anything, mock.Anything).Return(nil)
	mp.On("BoxCenter", mock.Anything, mock.Anything).Return(page.Point{X: 10, Y: 20}, nil)
	mp.On("MovePointer", mock.Anything, page.Point{X: 10, Y: 20}).Return(nil)

	res := mustExec(t, e, `hover Account`)
	assert.Equal(t, schemas.Ok(`Hovered div "Account"`), res)
	mp.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
	mp.AssertExpectations(t)
}

func TestEval(t *testing.T) {
	testCases := []struct {
		name string
		res  page.EvalResult
		want schemas.Result
	}{
		{"Object", page.EvalResult{Value: json.RawMessage(`{"b":1,"a":[true,null]}`)}, schemas.Ok("{\n  \"a\": [\n    true,\n    null\n  ],\n  \"b\": 1\n}")},
		{"BigNumber", page.EvalResult{Value: json.RawMessage(`12345678901234567890`)}, schemas.Ok("12345678901234567890")},
		{"String", page.EvalResult{Value: json.RawMessage(`"<b>"`)}, schemas.Ok(`"<b>"`)},
		{"Undefined", page.EvalResult{Undefined: true}, schemas.Ok("undefined")},
		{"Exception", page.EvalResult{Exception: "ReferenceError: foo is not defined"}, schemas.Fail("ReferenceError: foo is not defined")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mp := new(mocks.MockPage)
			e := New(mp, zaptest.NewLogger(t))
			mp.On("Evaluate", mock.Anything, "expr()").Return(tc.res, nil)
			assert.Equal(t, tc.want, mustExec(t, e, `eval "expr()"`))
		})
	}
}

func TestScreenshot(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	t.Run("Viewport", func(t *testing.T) {
		mp := new(mocks.MockPage)
		e := New(mp, zaptest.NewLogger(t))
		mp.On("CaptureScreenshot", mock.Anything, (*page.Clip)(nil)).Return(png, nil)

		res := mustExec(t, e, "screenshot")
		assert.Equal(t, schemas.Screenshot(base64.StdEncoding.EncodeToString(png)), res)
	})

	t.Run("FullPage", func(t *testing.T) {
		mp := new(mocks.MockPage)
		e := New(mp, zaptest.NewLogger(t))
		mp.On("ContentSize", mock.Anything).Return(1280.0, 3000.5, nil)
		mp.On("SetViewportOverride", mock.Anything, int64(1280), int64(3001)).Return(nil).Once()
		mp.On("CaptureScreenshot", mock.Anything, &page.Clip{Width: 1280, Height: 3001}).Return(png, nil)
		mp.On("ClearViewportOverride", mock.Anything).Return(nil).Once()

		res := mustExec(t, e, "screenshot FULL")
		assert.Equal(t, schemas.KindScreenshot, res.Kind)
		mp.AssertExpectations(t)
	})

	t.Run("RestoresViewportWhenCaptureFails", func(t *testing.T) {
		mp := new(mocks.MockPage)
		e := New(mp, zaptest.NewLogger(t))
		mp.On("ContentSize", mock.Anything).Return(800.0, 600.0, nil)
		mp.On("SetViewportOverride", mock.Anything, int64(800), int64(600)).Return(nil)
		mp.On("CaptureScreenshot", mock.Anything, mock.Anything).Return(nil, errors.New("target closed"))
		mp.On("ClearViewportOverride", mock.Anything).Return(nil).Once()

		res := mustExec(t, e, "screenshot full")
		assert.Equal(t, schemas.Fail("Screenshot failed: target closed"), res)
		mp.AssertCalled(t, "ClearViewportOverride", mock.Anything)
	})
}

func TestSnapshotFormatting(t *testing.T) {
	nodes := []page.AXNode{
		{Role: "RootWebArea", Name: "Todos"},
		{Role: "generic"},
		{Role: "heading", Name: "My list"},
		{Role: "StaticText", Name: ""},
		{Role: "StaticText", Name: "My list"},
		{Role: "InlineTextBox", Name: "My list"},
		{Role: "button", Name: "Hidden", Ignored: true},
		{Role: ""},
		{Role: "none"},
		{Role: "textbox"},
	}
	want := strings.Join([]string{
		`- RootWebArea "Todos" [ref=e1]`,
		`- heading "My list" [ref=e2]`,
		`- StaticText "My list" [ref=e3]`,
		`- textbox [ref=e4]`,
	}, "\n")
	assert.Equal(t, want, FormatSnapshot(nodes))

	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	mp.On("AccessibilityTree", mock.Anything).Return(nodes, nil)
	assert.Equal(t, schemas.Snapshot(want), mustExec(t, e, "s"))
}

type fakeScript struct {
	name  string
	lines []string
}

func (f fakeScript) Name() string    { return f.name }
func (f fakeScript) Lines() []string { return f.lines }

func TestExportAndHelp(t *testing.T) {
	e, _ := newStaticExecutor(t, nil)
	e.SetScriptSource(fakeScript{name: "checkout", lines: []string{"goto shop.test", `click "Buy"`}})

	res := mustExec(t, e, "export")
	require.Equal(t, schemas.KindInfo, res.Kind)
	assert.Contains(t, res.Data, "test('checkout', async ({ page }) => {")
	assert.Contains(t, res.Data, "await page.goto('https://shop.test');")
	assert.Contains(t, res.Data, "await page.getByText('Buy').click();")

	res = mustExec(t, e, "help")
	require.Equal(t, schemas.KindInfo, res.Kind)
	for _, section := range []string{"Navigation:", "Interaction:", "Inspection:", "Assertions:", "Session:"} {
		assert.Contains(t, res.Data, section)
	}
	assert.Contains(t, res.Data, "[open]")
	assert.Contains(t, res.Data, "e5 is the 5th element of the page in document order")
	assert.Contains(t, res.Data, "Snapshot refs number accessibility nodes")

	res = mustExec(t, e, "help c")
	assert.Equal(t, schemas.KindInfo, res.Kind)
	assert.True(t, strings.HasPrefix(res.Data, `click "<target>" ["<scope>"]`))

	res = mustExec(t, e, "help nope")
	assert.False(t, res.Success)
}

func TestPanicsBecomeErrors(t *testing.T) {
	mp := new(mocks.MockPage)
	e := New(mp, zaptest.NewLogger(t))
	mp.On("BodyText", mock.Anything).Panic("boom")

	res := mustExec(t, e, `verify-text x`)
	assert.Equal(t, schemas.Fail("Verify-text failed: boom"), res)
}
