// File: api/schemas/result.go
package schemas

import "fmt"

// ResultKind classifies the payload of a Result.
type ResultKind string

const (
	KindSuccess    ResultKind = "success"
	KindError      ResultKind = "error"
	KindInfo       ResultKind = "info"
	KindSnapshot   ResultKind = "snapshot"
	KindScreenshot ResultKind = "screenshot"
)

func (k ResultKind) String() string { return string(k) }

// Result is the uniform outcome of executing one command. Results are values
// and are never mutated after construction.
type Result struct {
	Success bool       `json:"success"`
	Kind    ResultKind `json:"kind"`
	// Data is human readable text for most kinds, the snapshot listing for
	// KindSnapshot and base64 PNG bytes for KindScreenshot.
	Data string `json:"data"`
}

// Passed reports whether a script line producing r counts as passed. Only
// the kind decides: every kind except KindError passes.
func (r Result) Passed() bool {
	return r.Kind != KindError
}

func (r Result) String() string {
	if r.Kind == KindScreenshot {
		return fmt.Sprintf("[%s] <%d bytes base64>", r.Kind, len(r.Data))
	}
	return fmt.Sprintf("[%s] %s", r.Kind, r.Data)
}

// Ok builds a successful result.
func Ok(format string, args ...any) Result {
	return Result{Success: true, Kind: KindSuccess, Data: fmt.Sprintf(format, args...)}
}

// Fail builds an error result.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Kind: KindError, Data: fmt.Sprintf(format, args...)}
}

// Info builds an informational result.
func Info(data string) Result {
	return Result{Success: true, Kind: KindInfo, Data: data}
}

// Snapshot builds an accessibility snapshot result.
func Snapshot(data string) Result {
	return Result{Success: true, Kind: KindSnapshot, Data: data}
}

// Screenshot builds a screenshot result from base64 encoded image data.
func Screenshot(b64 string) Result {
	return Result{Success: true, Kind: KindScreenshot, Data: b64}
}

// Verdict builds the result of a verify-* command. A false predicate is
// reported as FAIL text with an error kind so that script runs count it.
func Verdict(held bool, format string, args ...any) Result {
	if held {
		return Result{Success: true, Kind: KindSuccess, Data: "PASS: " + fmt.Sprintf(format, args...)}
	}
	return Result{Success: false, Kind: KindError, Data: "FAIL: " + fmt.Sprintf(format, args...)}
}
