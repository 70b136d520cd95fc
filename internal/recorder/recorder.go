// File: internal/recorder/recorder.go
package recorder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/command"
)

const (
	DefaultDebounce        = 1500 * time.Millisecond
	DefaultNavigationGrace = 2 * time.Second
)

// Sink receives synthesized command lines in recording order. It is called
// with the recorder lock held and must not call back into the Recorder.
type Sink func(line string)

// EventSource delivers raw page events to a handler until stopped.
type EventSource interface {
	Subscribe(ctx context.Context, handle func(Event)) (stop func(), err error)
}

type fillState int

const (
	stateIdle fillState = iota
	statePending
)

type pendingFill struct {
	target   string
	value    string
	deadline time.Time
}

// Recorder turns page events into script lines for one page. Text entry is
// coalesced: the fill for a field is recorded once the field has been quiet
// for the debounce interval, or earlier when another action is recorded.
type Recorder struct {
	mu       sync.Mutex
	logger   *zap.Logger
	sink     Sink
	debounce time.Duration
	grace    time.Duration
	now      func() time.Time

	active  bool
	state   fillState
	pending pendingFill
	timer   *time.Timer
	gen     uint64

	lastCausal time.Time
	suppress   string
	unsub      func()
	// suspended counts Suspend calls not yet matched by Resume.
	suspended int

	// timers tracks armed debounce callbacks.
	timers sync.WaitGroup
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithDebounce sets the quiet period after which a fill is recorded.
func WithDebounce(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithNavigationGrace sets how long after a click or Enter a navigation is
// attributed to it instead of being recorded as goto.
func WithNavigationGrace(d time.Duration) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.grace = d
		}
	}
}

// WithClock replaces time.Now for grace bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates an inactive recorder.
func New(logger *zap.Logger, sink Sink, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		logger:   logger.Named("recorder"),
		sink:     sink,
		debounce: DefaultDebounce,
		grace:    DefaultNavigationGrace,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start activates the recorder. Starting an active recorder is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return
	}
	r.active = true
	r.lastCausal = time.Time{}
	r.suppress = ""
	r.logger.Debug("Recording started.")
}

// Attach starts the recorder and subscribes it to src. Stop unsubscribes.
func (r *Recorder) Attach(ctx context.Context, src EventSource) error {
	unsub, err := src.Subscribe(ctx, r.Handle)
	if err != nil {
		return err
	}
	r.Start()
	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()
	return nil
}

// Active reports whether the recorder is recording.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Stop flushes a pending fill, deactivates the recorder and waits for
// debounce callbacks in flight.
func (r *Recorder) Stop() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	if r.active {
		r.flushLocked()
		r.active = false
		r.logger.Debug("Recording stopped.")
	}
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	r.timers.Wait()
}

// Flush records a pending fill now instead of at its deadline.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.flushLocked()
	}
}

// Suspend records a pending fill and ignores page events until Resume. It
// brackets commands executed on the user's behalf, whose clicks and
// navigations the page reports like any other.
func (r *Recorder) Suspend() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.flushLocked()
	}
	r.suspended++
}

// Resume ends a Suspend. A navigation reported within the grace period is
// attributed to the command that ran while suspended.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended == 0 {
		return
	}
	r.suspended--
	if r.suspended == 0 {
		r.lastCausal = r.now()
		r.suppress = ""
	}
}

// Handle processes one page event. Faults are logged at debug level and
// never propagate to the event source.
func (r *Recorder) Handle(ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("Recorder dropped an event after a fault.",
				zap.String("kind", string(ev.Kind)), zap.Any("panic", p))
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	if r.suspended > 0 {
		r.logger.Debug("Ignored event during a foreground command.", zap.String("kind", string(ev.Kind)))
		return
	}

	suppress := r.suppress
	r.suppress = ""

	d := Synthesize(ev)
	switch d.Op {
	case OpNone:
		return

	case OpFill:
		r.armLocked(d.Target, d.Value)

	case OpEmit:
		now := r.now()
		if ev.Kind == EventNavigate && !r.lastCausal.IsZero() && now.Sub(r.lastCausal) <= r.grace {
			r.logger.Debug("Navigation attributed to the previous action.", zap.String("url", ev.URL))
			return
		}
		if ev.Kind == EventClick && suppress != "" && ev.Target.IsCheckable() && checkboxName(ev.Target) == suppress {
			return
		}
		r.flushLocked()
		r.emitLocked(d.Command)
		r.suppress = d.Suppress
		if d.Causal {
			r.lastCausal = now
		}
	}
}

// armLocked moves to Pending for target, superseding any earlier window.
// A pending fill for another field is recorded first.
func (r *Recorder) armLocked(target, value string) {
	if r.state == statePending && r.pending.target != target {
		r.flushLocked()
	}
	r.disarmLocked()

	r.state = statePending
	r.pending = pendingFill{target: target, value: value, deadline: r.now().Add(r.debounce)}
	r.gen++
	gen := r.gen
	r.timers.Add(1)
	r.timer = time.AfterFunc(r.debounce, func() {
		defer r.timers.Done()
		r.onDeadline(gen)
	})
}

// disarmLocked stops the debounce timer. A callback that already fired sees
// a stale generation and does nothing.
func (r *Recorder) disarmLocked() {
	if r.timer != nil && r.timer.Stop() {
		r.timers.Done()
	}
	r.timer = nil
}

func (r *Recorder) onDeadline(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.state != statePending {
		return
	}
	r.timer = nil
	r.flushLocked()
}

// flushLocked records the pending fill, if any, and returns to Idle.
func (r *Recorder) flushLocked() {
	r.disarmLocked()
	if r.state != statePending {
		return
	}
	p := r.pending
	r.state = stateIdle
	r.pending = pendingFill{}
	r.gen++
	r.emitLocked("fill " + command.Quote(p.target) + " " + command.Quote(p.value))
}

func (r *Recorder) emitLocked(line string) {
	r.logger.Debug("Recorded command.", zap.String("line", line))
	if r.sink != nil {
		r.sink(line)
	}
}
