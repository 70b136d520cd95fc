// File: internal/executor/session.go
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/exporter"
)

func (e *Executor) export(_ context.Context, _ command.Command) (schemas.Result, error) {
	if e.script == nil {
		return schemas.Result{}, &usageError{usage: "export needs an open script"}
	}
	return schemas.Info(exporter.ExportScript(e.script.Lines(), e.script.Name())), nil
}

func (e *Executor) help(_ context.Context, cmd command.Command) (schemas.Result, error) {
	if name := cmd.Arg(0); name != "" {
		spec, ok := command.Lookup(name)
		if !ok {
			return schemas.Fail("Unknown command: %s. Type help to list commands.", name), nil
		}
		return schemas.Info(HelpFor(spec)), nil
	}
	return schemas.Info(HelpText()), nil
}

// HelpFor renders the usage block of one command.
func HelpFor(spec command.Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  %s", spec.Usage, spec.Summary)
	if len(spec.Aliases) > 0 {
		fmt.Fprintf(&b, "\n  Aliases: %s", strings.Join(spec.Aliases, ", "))
	}
	return b.String()
}

// HelpText lists every command grouped by category.
func HelpText() string {
	width := 0
	for _, s := range command.Specs() {
		if len(s.Usage) > width {
			width = len(s.Usage)
		}
	}

	var b strings.Builder
	for i, cat := range command.Categories {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", cat)
		for _, s := range command.Specs() {
			if s.Category != cat {
				continue
			}
			line := fmt.Sprintf("  %-*s  %s", width, s.Usage, s.Summary)
			if len(s.Aliases) > 0 {
				line += fmt.Sprintf(" [%s]", strings.Join(s.Aliases, ", "))
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\nTargets are quoted text (\"Save\") or element refs: e5 is the 5th element of the page in document order.\n")
	b.WriteString("Snapshot refs number accessibility nodes and can differ from element refs. Lines starting with # are comments.")
	return b.String()
}
