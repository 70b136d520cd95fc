// File: internal/executor/interaction.go
package executor

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/locator"
	"github.com/xkilldash9x/pwscript/internal/page"
)

func (e *Executor) click(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	n, err := e.clickAt(ctx, locator.ParseTarget(cmd.Arg(0), cmd.Arg(1)), 1)
	if err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Clicked %s", describe(n)), nil
}

func (e *Executor) dblClick(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	n, err := e.clickAt(ctx, locator.ParseTarget(cmd.Arg(0), ""), 2)
	if err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Double-clicked %s", describe(n)), nil
}

func (e *Executor) clickAt(ctx context.Context, t locator.Target, count int) (*page.Node, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return nil, err
	}
	m, err := locator.Resolve(doc, t)
	if err != nil {
		return nil, err
	}
	if err := e.page.ScrollIntoView(ctx, m.Node); err != nil {
		return nil, fmt.Errorf("scroll into view: %w", err)
	}
	if err := e.page.Click(ctx, m.Node, count); err != nil {
		return nil, err
	}
	return m.Node, nil
}

func (e *Executor) fill(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	m, err := locator.ResolveFocus(doc, locator.ParseTarget(cmd.Arg(0), ""))
	if err != nil {
		return schemas.Result{}, err
	}

	text := cmd.Arg(1)
	steps := []func() error{
		func() error { return e.page.Focus(ctx, m.Node) },
		func() error { return e.page.SetValue(ctx, m.Node, "") },
		func() error { return e.page.InsertText(ctx, text) },
		func() error { return e.page.DispatchEvent(ctx, m.Node, "input") },
		func() error { return e.page.DispatchEvent(ctx, m.Node, "change") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return schemas.Result{}, err
		}
	}
	return schemas.Ok("Filled %s with %q", describe(m.Node), text), nil
}

func (e *Executor) selectOption(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	m, err := locator.ResolveSelect(doc, locator.ParseTarget(cmd.Arg(0), ""))
	if err != nil {
		return schemas.Result{}, err
	}
	opt, err := locator.MatchOption(m.Node, cmd.Arg(1))
	if err != nil {
		return schemas.Result{}, err
	}
	if err := e.page.SetValue(ctx, m.Node, opt.Value); err != nil {
		return schemas.Result{}, err
	}
	if err := e.page.DispatchEvent(ctx, m.Node, "change"); err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Selected %q in %s", opt.Label, describeField(m.Node, cmd.Arg(0))), nil
}

func (e *Executor) check(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	return e.setChecked(ctx, cmd, true)
}

func (e *Executor) uncheck(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	return e.setChecked(ctx, cmd, false)
}

// setChecked toggles the checkbox only when its state differs from want.
func (e *Executor) setChecked(ctx context.Context, cmd command.Command, want bool) (schemas.Result, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	target := cmd.Arg(0)
	m, err := locator.ResolveCheckbox(doc, locator.ParseTarget(target, ""))
	if err != nil {
		return schemas.Result{}, err
	}

	verb := "Checked"
	if !want {
		verb = "Unchecked"
	}

	current, err := e.page.Checked(ctx, m.Node)
	if err != nil {
		return schemas.Result{}, fmt.Errorf("read state: %w", err)
	}
	if current == want {
		return schemas.Ok("%s %q (already %s)", verb, target, stateWord(want)), nil
	}

	if err := e.page.ScrollIntoView(ctx, m.Node); err != nil {
		return schemas.Result{}, fmt.Errorf("scroll into view: %w", err)
	}
	if err := e.page.Click(ctx, m.Node, 1); err != nil {
		return schemas.Result{}, err
	}

	after, err := e.page.Checked(ctx, m.Node)
	if err != nil {
		return schemas.Result{}, fmt.Errorf("read state: %w", err)
	}
	if after != want {
		return schemas.Result{}, fmt.Errorf("checkbox is still %s after clicking", stateWord(after))
	}
	return schemas.Ok("%s %q", verb, target), nil
}

func stateWord(checked bool) string {
	if checked {
		return "checked"
	}
	return "unchecked"
}

func (e *Executor) hover(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	m, err := locator.ResolveHover(doc, locator.ParseTarget(cmd.Arg(0), cmd.Arg(1)))
	if err != nil {
		return schemas.Result{}, err
	}
	if err := e.page.ScrollIntoView(ctx, m.Node); err != nil {
		return schemas.Result{}, fmt.Errorf("scroll into view: %w", err)
	}
	center, err := e.page.BoxCenter(ctx, m.Node)
	if err != nil {
		return schemas.Result{}, fmt.Errorf("measure element: %w", err)
	}
	if err := e.page.MovePointer(ctx, center); err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Hovered %s", describe(m.Node)), nil
}

func (e *Executor) press(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	name := cmd.Arg(0)
	key, ok := command.LookupKey(name)
	if !ok {
		spec, _ := command.SpecFor(command.KindPress)
		return schemas.Result{}, &usageError{usage: fmt.Sprintf("%s (unknown key %q)", spec.Usage, name)}
	}

	down := page.KeyEvent{Type: page.KeyDown, Key: key.Key, Code: key.Code, KeyCode: key.KeyCode, Text: key.Text}
	up := page.KeyEvent{Type: page.KeyUp, Key: key.Key, Code: key.Code, KeyCode: key.KeyCode}

	if err := e.page.DispatchKey(ctx, down); err != nil {
		return schemas.Result{}, err
	}
	if err := e.page.DispatchKey(ctx, up); err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Pressed %s", key.Name()), nil
}

// describeField names a form control by the text the user typed when the
// element itself has no readable text.
func describeField(n *page.Node, target string) string {
	return fmt.Sprintf("%s %q", n.Tag, target)
}
