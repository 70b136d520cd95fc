// File: api/schemas/report.go
package schemas

import "time"

// LineOutcome is the bookkeeping state of one script line.
type LineOutcome string

const (
	OutcomeUnset   LineOutcome = ""
	OutcomePass    LineOutcome = "pass"
	OutcomeFail    LineOutcome = "fail"
	OutcomeSkipped LineOutcome = "skipped"
)

// LineReport records what happened to a single line during a run.
type LineReport struct {
	Index   int         `json:"index"`
	Line    string      `json:"line"`
	Outcome LineOutcome `json:"outcome"`
	Result  *Result     `json:"result,omitempty"`
}

// RunReport summarizes one run of a script.
type RunReport struct {
	ID         string       `json:"id"`
	Script     string       `json:"script"`
	TabID      string       `json:"tab_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Cancelled  bool         `json:"cancelled"`
	Lines      []LineReport `json:"lines"`
}
