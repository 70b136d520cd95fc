// File: internal/repl/format.go
package repl

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/runner"
)

// FormatResult renders a result for the terminal. Multi-line data such as
// snapshots and help text is printed below the kind marker.
func FormatResult(res schemas.Result) string {
	if res.Kind == schemas.KindScreenshot {
		return res.String()
	}
	if strings.Contains(res.Data, "\n") {
		return fmt.Sprintf("[%s]\n%s", res.Kind, res.Data)
	}
	return res.String()
}

func outcomeMark(o schemas.LineOutcome) string {
	switch o {
	case schemas.OutcomePass:
		return "✓"
	case schemas.OutcomeFail:
		return "✗"
	case schemas.OutcomeSkipped:
		return "·"
	default:
		return " "
	}
}

// FormatEvent renders one runner line, e.g. `✓  3  click "Save"  [success] Clicked button "Save"`.
func FormatEvent(ev runner.LineEvent) string {
	head := fmt.Sprintf("%s %3d  %s", outcomeMark(ev.Outcome), ev.Index+1, ev.Line)
	if ev.Result == nil {
		return head
	}
	return head + "  " + FormatResult(*ev.Result)
}

// FormatSummary renders the last line of a run.
func FormatSummary(s runner.Summary) string {
	switch {
	case s.Cancelled:
		return fmt.Sprintf("Stopped: %d passed, %d failed", s.Passed, s.Failed)
	case s.Failed > 0:
		return fmt.Sprintf("FAILED: %d passed, %d failed", s.Passed, s.Failed)
	default:
		return fmt.Sprintf("PASSED: %d passed, %d failed", s.Passed, s.Failed)
	}
}

// FormatListing numbers the script lines and marks the outcome of lines the
// current session already ran. A step resume point is flagged with ">".
func FormatListing(lines []string, state runner.SessionState) string {
	if len(lines) == 0 {
		return "(empty script)"
	}
	var b strings.Builder
	for i, line := range lines {
		outcome := schemas.OutcomeUnset
		if i < len(state.Results) {
			outcome = state.Results[i]
		}
		cursor := " "
		if i == state.Cursor && state.Cursor > 0 {
			cursor = ">"
		}
		fmt.Fprintf(&b, "%s%s %3d  %s\n", cursor, outcomeMark(outcome), i+1, line)
	}
	return strings.TrimRight(b.String(), "\n")
}
