// File: internal/executor/navigation.go
package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
)

// waitForLoad waits for the load signal for at most loadTimeout. Running
// out of time is not an error: the navigation is assumed to have happened.
func (e *Executor) waitForLoad(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.loadTimeout)
	defer cancel()

	err := e.page.WaitForLoad(waitCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		e.logger.Debug("Load event did not arrive in time, continuing.", zap.Duration("timeout", e.loadTimeout))
		return nil
	default:
		return err
	}
}

func (e *Executor) gotoURL(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	url := command.NormalizeURL(cmd.Arg(0))
	if err := e.page.Navigate(ctx, url); err != nil {
		return schemas.Result{}, err
	}
	if err := e.waitForLoad(ctx); err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Navigated to %s", url), nil
}

func (e *Executor) goBack(ctx context.Context, _ command.Command) (schemas.Result, error) {
	return e.traverse(ctx, -1)
}

func (e *Executor) goForward(ctx context.Context, _ command.Command) (schemas.Result, error) {
	return e.traverse(ctx, 1)
}

func (e *Executor) traverse(ctx context.Context, delta int) (schemas.Result, error) {
	current, entries, err := e.page.History(ctx)
	if err != nil {
		return schemas.Result{}, fmt.Errorf("read history: %w", err)
	}
	target := current + delta
	if target < 0 {
		return schemas.Result{}, errors.New("no previous page in history")
	}
	if target >= len(entries) {
		return schemas.Result{}, errors.New("no next page in history")
	}

	entry := entries[target]
	if err := e.page.NavigateToHistoryEntry(ctx, entry.ID); err != nil {
		return schemas.Result{}, err
	}
	if err := e.waitForLoad(ctx); err != nil {
		return schemas.Result{}, err
	}
	if delta < 0 {
		return schemas.Ok("Navigated back to %s", entry.URL), nil
	}
	return schemas.Ok("Navigated forward to %s", entry.URL), nil
}

func (e *Executor) reload(ctx context.Context, _ command.Command) (schemas.Result, error) {
	if err := e.page.Reload(ctx); err != nil {
		return schemas.Result{}, err
	}
	if err := e.waitForLoad(ctx); err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("Reloaded page"), nil
}
