// File: internal/exporter/exporter.go
package exporter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/locator"
)

// DefaultTestName is used when a script has no file name.
const DefaultTestName = "recorded test"

// itemSelector matches the containers a scoped target narrows to.
const itemSelector = "li, tr, [role=listitem], [role=row], article"

// controlTags are the tag names recorded for unlabeled item controls.
var controlTags = map[string]bool{"button": true, "a": true, "input": true}

// converter turns one resolved command into a statement. An empty statement
// comes with the reason the command could not be exported.
type converter func(cmd command.Command) (stmt string, reason string)

var converters map[command.Kind]converter

func init() {
	converters = map[command.Kind]converter{
		command.KindGoto: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await page.goto(%s);", jsString(command.NormalizeURL(cmd.Arg(0)))), ""
		},
		command.KindGoBack:    fixed("await page.goBack();"),
		command.KindGoForward: fixed("await page.goForward();"),
		command.KindReload:    fixed("await page.reload();"),

		command.KindClick: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.click();", target(cmd.Arg(0), cmd.Arg(1))), ""
		},
		command.KindDblClick: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.dblclick();", target(cmd.Arg(0), "")), ""
		},
		command.KindHover: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.hover();", target(cmd.Arg(0), cmd.Arg(1))), ""
		},
		command.KindFill: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.fill(%s);", field(cmd.Arg(0)), jsString(cmd.Arg(1))), ""
		},
		command.KindSelect: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.selectOption(%s);", labelled(cmd.Arg(0)), jsString(cmd.Arg(1))), ""
		},
		command.KindCheck: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.check();", labelled(cmd.Arg(0))), ""
		},
		command.KindUncheck: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await %s.uncheck();", labelled(cmd.Arg(0))), ""
		},
		command.KindPress: func(cmd command.Command) (string, string) {
			key, ok := command.LookupKey(cmd.Arg(0))
			if !ok {
				return "", fmt.Sprintf("unknown key %q", cmd.Arg(0))
			}
			return fmt.Sprintf("await page.keyboard.press(%s);", jsString(key.Name())), ""
		},

		command.KindScreenshot: func(cmd command.Command) (string, string) {
			if strings.EqualFold(cmd.Arg(0), "full") {
				return "await page.screenshot({ path: 'screenshot.png', fullPage: true });", ""
			}
			return "await page.screenshot({ path: 'screenshot.png' });", ""
		},
		command.KindEval: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await page.evaluate(%s);", jsString(cmd.Arg(0))), ""
		},
		command.KindSnapshot: skip("snapshot has no test equivalent"),

		command.KindVerifyText: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(page.locator('body')).toContainText(%s);", jsString(cmd.Arg(0))), ""
		},
		command.KindVerifyNoText: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(page.locator('body')).not.toContainText(%s);", jsString(cmd.Arg(0))), ""
		},
		command.KindVerifyElement: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(%s.first()).toBeVisible();", target(cmd.Arg(0), cmd.Arg(1))), ""
		},
		command.KindVerifyNoElement: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(%s).toHaveCount(0);", target(cmd.Arg(0), cmd.Arg(1))), ""
		},
		command.KindVerifyURL: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(page).toHaveURL(%s);", jsRegexp(cmd.Arg(0))), ""
		},
		command.KindVerifyTitle: func(cmd command.Command) (string, string) {
			return fmt.Sprintf("await expect(page).toHaveTitle(%s);", jsRegexp(cmd.Arg(0))), ""
		},

		command.KindExport: skip("export is a session command"),
		command.KindHelp:   skip("help is a session command"),
	}
}

func fixed(stmt string) converter {
	return func(command.Command) (string, string) { return stmt, "" }
}

func skip(reason string) converter {
	return func(command.Command) (string, string) { return "", reason }
}

// convert maps a resolved command onto a statement or a reason for skipping it.
func convert(cmd command.Command) (string, string) {
	if cmd.Kind == command.KindUnknown {
		return "", fmt.Sprintf("unknown command %q", cmd.Name)
	}
	spec, _ := command.SpecFor(cmd.Kind)
	if len(cmd.Args) < spec.MinArgs {
		return "", "missing arguments, usage: " + spec.Usage
	}
	conv, ok := converters[cmd.Kind]
	if !ok {
		return "", fmt.Sprintf("%s cannot be exported", cmd.Name)
	}
	return conv(cmd)
}

// ToPlaywright converts one script line into a Playwright statement. It
// reports false for blank lines, comments, unknown commands, lines missing
// required arguments and commands without a test equivalent.
func ToPlaywright(line string) (string, bool) {
	cmd, ok := command.ParseLine(line)
	if !ok {
		return "", false
	}
	stmt, _ := convert(cmd)
	return stmt, stmt != ""
}

// ExportScript renders lines as a complete Playwright test file. Comments are
// kept as code comments and lines that cannot be converted are replaced by a
// comment naming the reason.
func ExportScript(lines []string, name string) string {
	if strings.TrimSpace(name) == "" {
		name = DefaultTestName
	}

	var b strings.Builder
	b.WriteString("import { test, expect } from '@playwright/test';\n\n")
	fmt.Fprintf(&b, "test(%s, async ({ page }) => {\n", jsString(name))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			b.WriteString("\n")
		case command.IsComment(trimmed):
			fmt.Fprintf(&b, "  // %s\n", strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
		default:
			cmd, _ := command.ParseLine(trimmed)
			if stmt, reason := convert(cmd); stmt != "" {
				fmt.Fprintf(&b, "  %s\n", stmt)
			} else {
				fmt.Fprintf(&b, "  // %s (skipped: %s)\n", oneLine(trimmed), reason)
			}
		}
	}
	b.WriteString("});\n")
	return b.String()
}

// target renders the locator a click style command acts on.
func target(text, scope string) string {
	t := locator.ParseTarget(text, scope)
	if t.IsRef() {
		return fmt.Sprintf("page.locator('xpath=(//*)[%s]')", strconv.Itoa(t.Ref))
	}
	if scope != "" {
		item := fmt.Sprintf("page.locator('%s').filter({ hasText: %s })", itemSelector, jsString(scope))
		if tag := strings.ToLower(strings.TrimSpace(text)); controlTags[tag] {
			return fmt.Sprintf("%s.locator('%s').first()", item, tag)
		}
		return fmt.Sprintf("%s.getByText(%s)", item, jsString(text))
	}
	return fmt.Sprintf("page.getByText(%s)", jsString(text))
}

// field renders a text field locator covering labels and placeholders.
func field(text string) string {
	t := locator.ParseTarget(text, "")
	if t.IsRef() {
		return target(text, "")
	}
	s := jsString(text)
	return fmt.Sprintf("page.getByLabel(%s).or(page.getByPlaceholder(%s)).first()", s, s)
}

func labelled(text string) string {
	if locator.ParseTarget(text, "").IsRef() {
		return target(text, "")
	}
	return fmt.Sprintf("page.getByLabel(%s)", jsString(text))
}

// jsString quotes s as a single quoted JavaScript string literal.
func jsString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return "'" + s + "'"
}

// jsRegexp renders a regular expression literal matching s as a substring.
func jsRegexp(s string) string {
	q := regexp.QuoteMeta(s)
	q = strings.ReplaceAll(q, "/", `\/`)
	return "/" + q + "/"
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
