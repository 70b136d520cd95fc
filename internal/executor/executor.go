// File: internal/executor/executor.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/locator"
	"github.com/xkilldash9x/pwscript/internal/page"
)

const defaultLoadTimeout = 5 * time.Second

// ScriptSource gives the export command access to the script being edited.
type ScriptSource interface {
	Name() string
	Lines() []string
}

// usageError is reported as "Usage: ..." without touching the page.
type usageError struct{ usage string }

func (e *usageError) Error() string { return "Usage: " + e.usage }

// handler runs one command kind. A returned error is classified into a
// usage, resolution or driver failure at the executor boundary.
type handler func(ctx context.Context, cmd command.Command) (schemas.Result, error)

// Executor dispatches parsed commands to Page primitives. It is not safe for
// concurrent use; callers serialize commands per page.
type Executor struct {
	page        page.Page
	logger      *zap.Logger
	loadTimeout time.Duration
	script      ScriptSource
	handlers    map[command.Kind]handler
}

// Option configures an Executor.
type Option func(*Executor)

// WithLoadTimeout bounds the wait for the load event after navigations.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.loadTimeout = d
		}
	}
}

// WithScriptSource enables the export command.
func WithScriptSource(src ScriptSource) Option {
	return func(e *Executor) { e.script = src }
}

// New creates an Executor bound to one page.
func New(p page.Page, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		page:        p,
		logger:      logger.Named("executor"),
		loadTimeout: defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[command.Kind]handler{
		command.KindGoto:            e.gotoURL,
		command.KindGoBack:          e.goBack,
		command.KindGoForward:       e.goForward,
		command.KindReload:          e.reload,
		command.KindClick:           e.click,
		command.KindDblClick:        e.dblClick,
		command.KindFill:            e.fill,
		command.KindSelect:          e.selectOption,
		command.KindCheck:           e.check,
		command.KindUncheck:         e.uncheck,
		command.KindHover:           e.hover,
		command.KindPress:           e.press,
		command.KindSnapshot:        e.snapshot,
		command.KindScreenshot:      e.screenshot,
		command.KindEval:            e.eval,
		command.KindVerifyText:      e.verifyText,
		command.KindVerifyNoText:    e.verifyNoText,
		command.KindVerifyElement:   e.verifyElement,
		command.KindVerifyNoElement: e.verifyNoElement,
		command.KindVerifyURL:       e.verifyURL,
		command.KindVerifyTitle:     e.verifyTitle,
		command.KindExport:          e.export,
		command.KindHelp:            e.help,
	}
	return e
}

// SetScriptSource attaches or replaces the script used by export.
func (e *Executor) SetScriptSource(src ScriptSource) { e.script = src }

// ExecuteLine parses and executes one script line.
func (e *Executor) ExecuteLine(ctx context.Context, line string) schemas.Result {
	cmd, ok := command.ParseLine(line)
	if !ok {
		return schemas.Info(strings.TrimSpace(line))
	}
	return e.Execute(ctx, cmd)
}

// Execute runs a resolved command and converts every failure into an error
// result. It never panics.
func (e *Executor) Execute(ctx context.Context, cmd command.Command) (res schemas.Result) {
	if cmd.Kind == command.KindUnknown {
		return schemas.Fail("Unknown command: %s. Type help to list commands.", cmd.Name)
	}
	spec, _ := command.SpecFor(cmd.Kind)
	if len(cmd.Args) < spec.MinArgs {
		return schemas.Fail("Usage: %s", spec.Usage)
	}
	h, ok := e.handlers[cmd.Kind]
	if !ok {
		return schemas.Fail("%s is not supported", cmd.Name)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Command panicked.", zap.String("command", cmd.Name), zap.Any("panic", r))
			res = schemas.Fail("%s failed: %v", cmd.Kind.Title(), r)
		}
		e.logger.Debug("Command executed.",
			zap.String("command", cmd.Name),
			zap.Strings("args", cmd.Args),
			zap.String("kind", res.Kind.String()),
			zap.Bool("success", res.Success),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	res, err := h(ctx, cmd)
	if err == nil {
		return res
	}

	var usage *usageError
	var missing *locator.NotFoundError
	switch {
	case errors.As(err, &usage):
		return schemas.Fail("%s", usage.Error())
	case errors.As(err, &missing):
		return schemas.Fail("%s", missing.Error())
	default:
		return schemas.Fail("%s failed: %s", cmd.Kind.Title(), err.Error())
	}
}

// document fetches a fresh DOM snapshot for one command.
func (e *Executor) document(ctx context.Context) (*page.Node, error) {
	doc, err := e.page.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

// describe renders a resolved element for result messages, e.g.
// `button "Save"`.
func describe(n *page.Node) string {
	text := n.Text()
	if text == "" {
		text = n.AttrOr("aria-label")
	}
	if text == "" {
		text = n.AttrOr("value")
	}
	if text == "" {
		text = n.AttrOr("placeholder")
	}
	if r := []rune(text); len(r) > 40 {
		text = string(r[:37]) + "..."
	}
	if text == "" {
		return n.Tag
	}
	return fmt.Sprintf("%s %q", n.Tag, text)
}
