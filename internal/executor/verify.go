// File: internal/executor/verify.go
package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/locator"
)

// The verify family reports a false predicate as a FAIL verdict, never as an
// error. Errors are reserved for pages that cannot be read.

func (e *Executor) verifyText(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	found, err := e.bodyContains(ctx, cmd.Arg(0))
	if err != nil {
		return schemas.Result{}, err
	}
	if found {
		return schemas.Verdict(true, "text %q found on page", cmd.Arg(0)), nil
	}
	return schemas.Verdict(false, "text %q not found on page", cmd.Arg(0)), nil
}

func (e *Executor) verifyNoText(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	found, err := e.bodyContains(ctx, cmd.Arg(0))
	if err != nil {
		return schemas.Result{}, err
	}
	if found {
		return schemas.Verdict(false, "text %q found on page", cmd.Arg(0)), nil
	}
	return schemas.Verdict(true, "text %q not found on page", cmd.Arg(0)), nil
}

func (e *Executor) bodyContains(ctx context.Context, text string) (bool, error) {
	body, err := e.page.BodyText(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(body, text), nil
}

func (e *Executor) verifyElement(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	present, err := e.elementPresent(ctx, cmd)
	if err != nil {
		return schemas.Result{}, err
	}
	if present {
		return schemas.Verdict(true, "element %q found", cmd.Arg(0)), nil
	}
	return schemas.Verdict(false, "element %q not found", cmd.Arg(0)), nil
}

func (e *Executor) verifyNoElement(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	present, err := e.elementPresent(ctx, cmd)
	if err != nil {
		return schemas.Result{}, err
	}
	if present {
		return schemas.Verdict(false, "element %q found", cmd.Arg(0)), nil
	}
	return schemas.Verdict(true, "element %q not found", cmd.Arg(0)), nil
}

// elementPresent runs the click resolver without acting on the result.
func (e *Executor) elementPresent(ctx context.Context, cmd command.Command) (bool, error) {
	doc, err := e.document(ctx)
	if err != nil {
		return false, err
	}
	_, err = locator.Resolve(doc, locator.ParseTarget(cmd.Arg(0), cmd.Arg(1)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, locator.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (e *Executor) verifyURL(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	url, err := e.page.URL(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	want := cmd.Arg(0)
	if strings.Contains(url, want) {
		return schemas.Verdict(true, "URL %q contains %q", url, want), nil
	}
	return schemas.Verdict(false, "URL %q does not contain %q", url, want), nil
}

func (e *Executor) verifyTitle(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	title, err := e.page.Title(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	want := cmd.Arg(0)
	if strings.Contains(title, want) {
		return schemas.Verdict(true, "title %q contains %q", title, want), nil
	}
	return schemas.Verdict(false, "title %q does not contain %q", title, want), nil
}
