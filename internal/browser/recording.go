// File: internal/browser/recording.go
package browser

import (
	"context"
	_ "embed"
	"fmt"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/recorder"
)

// recordBinding is the page global the capture script reports through.
const recordBinding = "__pwscriptRecord"

//go:embed recorder.js
var recorderScript string

var _ recorder.EventSource = (*Page)(nil)

// Subscribe installs the capture script in the current and every future
// document of the tab and streams its events, plus main frame navigations,
// to handle. The returned stop removes the script and the binding.
func (p *Page) Subscribe(ctx context.Context, handle func(recorder.Event)) (func(), error) {
	var scriptID cdppage.ScriptIdentifier
	err := p.runActions(ctx,
		runtime.AddBinding(recordBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			scriptID, err = cdppage.AddScriptToEvaluateOnNewDocument(recorderScript).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, exc, err := runtime.Evaluate(recorderScript).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return fmt.Errorf("install recorder: %s", exceptionText(exc))
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to install recorder: %w", err)
	}

	listenCtx, cancel := context.WithCancel(p.ctx)
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if rec, ok := p.recordEvent(ev); ok {
			handle(rec)
		}
	})

	stop := func() {
		cancel()
		cleanupCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer done()
		err := p.runActions(cleanupCtx,
			cdppage.RemoveScriptToEvaluateOnNewDocument(scriptID),
			runtime.RemoveBinding(recordBinding),
		)
		if err != nil {
			p.logger.Debug("Failed to remove recorder from page.", zap.Error(err))
		}
	}
	return stop, nil
}

// recordEvent converts a protocol event into a recorder event.
func (p *Page) recordEvent(ev any) (recorder.Event, bool) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != recordBinding {
			return recorder.Event{}, false
		}
		var rec recorder.Event
		if err := json.Unmarshal([]byte(e.Payload), &rec); err != nil {
			p.logger.Debug("Dropped malformed recorder payload.", zap.Error(err))
			return recorder.Event{}, false
		}
		return rec, true
	case *cdppage.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return recorder.Event{}, false
		}
		return recorder.Event{Kind: recorder.EventNavigate, URL: e.Frame.URL, MainFrame: true}, true
	}
	return recorder.Event{}, false
}
