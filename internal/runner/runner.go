// File: internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/transport"
)

// DefaultSettleDelay is the pause between two executed commands.
const DefaultSettleDelay = 300 * time.Millisecond

// ErrRunning is returned when Run or Step is called while a run is active.
var ErrRunning = errors.New("a run is already in progress")

// LineEvent reports the handling of one script line.
type LineEvent struct {
	Index      int
	Line       string
	Executable bool
	Outcome    schemas.LineOutcome
	// Result is nil for comments and blank lines.
	Result *schemas.Result
}

// Summary is the outcome of Run.
type Summary struct {
	Passed    int
	Failed    int
	Completed bool
	Cancelled bool
}

// StepResult is the outcome of Step.
type StepResult struct {
	// Event is the executed line; zero when Done.
	Event LineEvent
	// Done is set when no executable line was left. The session has been
	// reset and the next Step starts at the top.
	Done bool
}

// SessionState is the per-line bookkeeping shared by Run and Step.
type SessionState struct {
	Cursor    int
	Results   []schemas.LineOutcome
	PassCount int
	FailCount int
	Running   bool
}

// Runner executes a ScriptBuffer through a Transport, either as a whole or
// one line at a time.
type Runner struct {
	logger    *zap.Logger
	transport transport.Transport
	buffer    *ScriptBuffer
	tabID     string
	settle    time.Duration
	onLine    func(LineEvent)

	mu       sync.Mutex
	state    SessionState
	revision uint64
	stopCh   chan struct{}
	stopOnce *sync.Once
	report   schemas.RunReport
}

// Option configures a Runner.
type Option func(*Runner)

// WithSettleDelay sets the pause between commands.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.settle = d
		}
	}
}

// WithTab addresses commands to tabID.
func WithTab(tabID string) Option {
	return func(r *Runner) { r.tabID = tabID }
}

// WithLineHandler registers a callback invoked for every handled line, on
// the goroutine running the script.
func WithLineHandler(fn func(LineEvent)) Option {
	return func(r *Runner) { r.onLine = fn }
}

// New creates a runner for buffer.
func New(t transport.Transport, buffer *ScriptBuffer, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		logger:    logger.Named("runner"),
		transport: t,
		buffer:    buffer,
		settle:    DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a copy of the session bookkeeping.
func (r *Runner) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Results = append([]schemas.LineOutcome(nil), r.state.Results...)
	return s
}

// Report returns the report of the last Run.
func (r *Runner) Report() schemas.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.report
	rep.Lines = append([]schemas.LineReport(nil), r.report.Lines...)
	return rep
}

// Reset clears all results and moves the cursor to the top.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Running {
		r.resetLocked(r.buffer.Len())
	}
}

func (r *Runner) resetLocked(n int) {
	r.state = SessionState{Results: make([]schemas.LineOutcome, n)}
	r.revision = r.buffer.Revision()
}

// Stop asks a running script to stop before its next line. The command in
// flight, if any, completes.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Running && r.stopOnce != nil {
		r.stopOnce.Do(func() { close(r.stopCh) })
	}
}

// begin validates and prepares the session for Run or Step and returns the
// lines to work on.
func (r *Runner) begin() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Running {
		return nil, ErrRunning
	}
	lines, rev := r.buffer.snapshot()
	if rev != r.revision || r.state.Cursor == 0 || len(r.state.Results) != len(lines) {
		r.state = SessionState{Results: make([]schemas.LineOutcome, len(lines))}
		r.revision = rev
		r.report = schemas.RunReport{
			ID:        uuid.NewString(),
			Script:    r.buffer.Path(),
			TabID:     r.tabID,
			StartedAt: time.Now().UTC(),
		}
	}
	r.state.Running = true
	r.stopCh = make(chan struct{})
	r.stopOnce = &sync.Once{}
	return lines, nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Running = false
}

func (r *Runner) stopRequested() bool {
	r.mu.Lock()
	ch := r.stopCh
	r.mu.Unlock()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Run executes from the cursor to the end of the script. The cursor is the
// top unless a previous Step left a resume point. Stop and ctx cancellation
// take effect between lines.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	lines, err := r.begin()
	if err != nil {
		return Summary{}, err
	}
	defer r.end()

	r.mu.Lock()
	start := r.state.Cursor
	r.mu.Unlock()

	r.logger.Info("Running script.", zap.Int("lines", len(lines)), zap.Int("from", start+1))

	var summary Summary
	executed := 0
	for i := start; i < len(lines); i++ {
		if r.stopRequested() || ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		line := lines[i]
		if !command.IsExecutable(line) {
			r.skip(i, line)
			continue
		}
		if executed > 0 && !r.settleWait(ctx) {
			summary.Cancelled = true
			break
		}
		r.execute(ctx, i, line)
		executed++
	}

	r.mu.Lock()
	summary.Passed = r.state.PassCount
	summary.Failed = r.state.FailCount
	r.report.Passed = r.state.PassCount
	r.report.Failed = r.state.FailCount
	r.report.Cancelled = summary.Cancelled
	r.report.FinishedAt = time.Now().UTC()
	if !summary.Cancelled {
		summary.Completed = true
		// A finished run starts over next time.
		r.state.Cursor = 0
	}
	r.mu.Unlock()

	r.logger.Info("Run finished.",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Bool("cancelled", summary.Cancelled))
	return summary, nil
}

// Step executes the next executable line. Comments and blank lines before
// it are reported and passed over. When nothing is left it reports Done and
// resets the session.
func (r *Runner) Step(ctx context.Context) (StepResult, error) {
	lines, err := r.begin()
	if err != nil {
		return StepResult{}, err
	}
	defer r.end()

	r.mu.Lock()
	start := r.state.Cursor
	r.mu.Unlock()

	for i := start; i < len(lines); i++ {
		if !command.IsExecutable(lines[i]) {
			r.skip(i, lines[i])
			continue
		}
		if err := ctx.Err(); err != nil {
			return StepResult{}, err
		}
		return StepResult{Event: r.execute(ctx, i, lines[i])}, nil
	}

	r.mu.Lock()
	r.resetLocked(len(lines))
	r.mu.Unlock()
	return StepResult{Done: true}, nil
}

// settleWait pauses between commands. It returns false when the run was
// stopped or cancelled meanwhile.
func (r *Runner) settleWait(ctx context.Context) bool {
	if r.settle <= 0 {
		return !r.stopRequested() && ctx.Err() == nil
	}
	r.mu.Lock()
	ch := r.stopCh
	r.mu.Unlock()

	timer := time.NewTimer(r.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ch:
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) skip(i int, line string) {
	r.mu.Lock()
	r.state.Cursor = i + 1
	r.report.Lines = append(r.report.Lines, schemas.LineReport{Index: i, Line: line, Outcome: schemas.OutcomeSkipped})
	r.mu.Unlock()
	r.emit(LineEvent{Index: i, Line: line, Outcome: schemas.OutcomeSkipped})
}

func (r *Runner) execute(ctx context.Context, i int, line string) LineEvent {
	req := schemas.CommandRequest{ID: uuid.NewString(), TabID: r.tabID, Command: line}
	res, err := r.transport.Send(ctx, req)
	if err != nil {
		r.logger.Warn("Command could not be delivered.", zap.Int("line", i+1), zap.Error(err))
		res = schemas.Fail("Transport error: %v", err)
	}

	outcome := schemas.OutcomeFail
	if err == nil && res.Passed() {
		outcome = schemas.OutcomePass
	}

	r.mu.Lock()
	r.state.Results[i] = outcome
	if outcome == schemas.OutcomePass {
		r.state.PassCount++
	} else {
		r.state.FailCount++
	}
	r.state.Cursor = i + 1
	result := res
	r.report.Lines = append(r.report.Lines, schemas.LineReport{Index: i, Line: line, Outcome: outcome, Result: &result})
	r.mu.Unlock()

	ev := LineEvent{Index: i, Line: line, Executable: true, Outcome: outcome, Result: &result}
	r.emit(ev)
	return ev
}

func (r *Runner) emit(ev LineEvent) {
	if r.onLine != nil {
		r.onLine(ev)
	}
}
