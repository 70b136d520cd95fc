// File: internal/executor/inspection.go
package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/page"
)

// evalJSON keeps numbers exact and map keys ordered when re-indenting
// evaluation results.
var evalJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// excludedRoles never appear in snapshots.
var excludedRoles = map[string]bool{
	"":              true,
	"none":          true,
	"generic":       true,
	"InlineTextBox": true,
}

// FormatSnapshot renders accessibility nodes as `- <role> ["<name>"] [ref=e<N>]`
// lines. Nodes without a role, with a presentational role, ignored nodes and
// unnamed static text are skipped; refs count the remaining nodes from 1.
func FormatSnapshot(nodes []page.AXNode) string {
	var lines []string
	for _, n := range nodes {
		if n.Ignored || excludedRoles[n.Role] {
			continue
		}
		name := strings.TrimSpace(n.Name)
		if n.Role == "StaticText" && name == "" {
			continue
		}
		ref := len(lines) + 1
		if name != "" {
			lines = append(lines, fmt.Sprintf("- %s %q [ref=e%d]", n.Role, name, ref))
		} else {
			lines = append(lines, fmt.Sprintf("- %s [ref=e%d]", n.Role, ref))
		}
	}
	return strings.Join(lines, "\n")
}

func (e *Executor) snapshot(ctx context.Context, _ command.Command) (schemas.Result, error) {
	nodes, err := e.page.AccessibilityTree(ctx)
	if err != nil {
		return schemas.Result{}, err
	}
	return schemas.Snapshot(FormatSnapshot(nodes)), nil
}

func (e *Executor) screenshot(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	mode := strings.ToLower(cmd.Arg(0))
	if mode != "" && mode != "full" {
		spec, _ := command.SpecFor(command.KindScreenshot)
		return schemas.Result{}, &usageError{usage: spec.Usage}
	}

	var (
		png []byte
		err error
	)
	if mode == "full" {
		png, err = e.fullPageScreenshot(ctx)
	} else {
		png, err = e.page.CaptureScreenshot(ctx, nil)
	}
	if err != nil {
		return schemas.Result{}, err
	}
	return schemas.Screenshot(base64.StdEncoding.EncodeToString(png)), nil
}

// fullPageScreenshot grows the emulated viewport to the content size for the
// capture. The override is always cleared again, also when capturing fails.
func (e *Executor) fullPageScreenshot(ctx context.Context) (png []byte, err error) {
	width, height, err := e.page.ContentSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("measure content: %w", err)
	}
	w, h := int64(math.Ceil(width)), int64(math.Ceil(height))
	if err := e.page.SetViewportOverride(ctx, w, h); err != nil {
		return nil, fmt.Errorf("override viewport: %w", err)
	}
	defer func() {
		// Restore even when ctx was cancelled mid-capture.
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := e.page.ClearViewportOverride(restoreCtx); rerr != nil {
			e.logger.Warn("Failed to restore viewport after full page screenshot.", zap.Error(rerr))
			if err == nil {
				err = fmt.Errorf("restore viewport: %w", rerr)
			}
		}
	}()

	return e.page.CaptureScreenshot(ctx, &page.Clip{Width: float64(w), Height: float64(h)})
}

func (e *Executor) eval(ctx context.Context, cmd command.Command) (schemas.Result, error) {
	res, err := e.page.Evaluate(ctx, cmd.Arg(0))
	if err != nil {
		return schemas.Result{}, err
	}
	if res.Exception != "" {
		return schemas.Fail("%s", res.Exception), nil
	}
	if res.Undefined || len(res.Value) == 0 {
		return schemas.Ok("undefined"), nil
	}
	out, err := indentJSON(res.Value)
	if err != nil {
		return schemas.Result{}, err
	}
	return schemas.Ok("%s", out), nil
}

func indentJSON(raw []byte) (string, error) {
	var v any
	if err := evalJSON.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("decode result: %w", err)
	}
	out, err := evalJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}
