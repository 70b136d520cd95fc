// File: internal/repl/shell.go
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/recorder"
	"github.com/xkilldash9x/pwscript/internal/runner"
	"github.com/xkilldash9x/pwscript/internal/transport"
)

const shellHelp = `Shell commands:
  :run              Run the script from the top, or from the step position
  :step             Run the next line of the script
  :stop             Stop a running script before its next line
  :record on|off    Append your clicks and typing in the browser to the script
  :list             Show the script with the results of this session
  :save [file]      Save the script
  :load <file>      Replace the script with a file
  :clear            Empty the script
  :quit             Leave the shell
Any other line is executed and appended to the script. Type help for the
browser command list.`

// Shell is the interactive line loop. Browser commands go through the
// transport; lines starting with ":" control the session.
type Shell struct {
	logger    *zap.Logger
	in        io.Reader
	out       io.Writer
	transport transport.Transport
	tabID     string
	buffer    *runner.ScriptBuffer
	runner    *runner.Runner
	source    recorder.EventSource
	recorder  *recorder.Recorder
	reports   ReportSaver

	runnerOpts []runner.Option

	outMu sync.Mutex
	runWG sync.WaitGroup
}

// Option configures a Shell.
type Option func(*Shell)

// WithTab routes commands to one tab of the transport.
func WithTab(tabID string) Option {
	return func(s *Shell) { s.tabID = tabID }
}

// WithRecording enables :record using events from src.
func WithRecording(src recorder.EventSource, opts ...recorder.Option) Option {
	return func(s *Shell) {
		s.source = src
		s.recorder = recorder.New(s.logger, s.recorded, opts...)
	}
}

// WithRunnerOptions passes options to the session runner.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(s *Shell) { s.runnerOpts = append(s.runnerOpts, opts...) }
}

// ReportSaver persists run reports.
type ReportSaver interface {
	SaveRun(ctx context.Context, report *schemas.RunReport) error
}

// WithReportStore saves the report of every :run.
func WithReportStore(st ReportSaver) Option {
	return func(s *Shell) { s.reports = st }
}

// New creates a shell editing buffer.
func New(t transport.Transport, buffer *runner.ScriptBuffer, in io.Reader, out io.Writer, logger *zap.Logger, opts ...Option) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer == nil {
		buffer = runner.NewScriptBuffer()
	}
	s := &Shell{
		logger:    logger.Named("repl"),
		in:        in,
		out:       out,
		transport: t,
		buffer:    buffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	runnerOpts := append(s.runnerOpts, runner.WithLineHandler(s.lineEvent), runner.WithTab(s.tabID))
	s.runner = runner.New(t, buffer, s.logger, runnerOpts...)
	return s
}

// Buffer returns the script being edited.
func (s *Shell) Buffer() *runner.ScriptBuffer { return s.buffer }

// Runner returns the session runner.
func (s *Shell) Runner() *runner.Runner { return s.runner }

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(text string) {
	s.printf("%s\n", text)
}

func (s *Shell) prompt() {
	if s.recorder != nil && s.recorder.Active() {
		s.printf("pwscript (rec)> ")
		return
	}
	s.printf("pwscript> ")
}

// Run reads lines until EOF, :quit or ctx cancellation. A background run is
// stopped and awaited before Run returns.
func (s *Shell) Run(ctx context.Context) error {
	defer s.shutdown()
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			s.println("")
			return nil
		case line, ok := <-lines:
			if !ok {
				s.println("")
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := s.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *Shell) shutdown() {
	s.runner.Stop()
	s.runWG.Wait()
	if s.recorder != nil {
		s.recorder.Stop()
	}
}

// Handle processes one input line and reports whether the shell should exit.
func (s *Shell) Handle(ctx context.Context, raw string) (quit bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ":") {
		return s.meta(ctx, line)
	}
	s.exec(ctx, line)
	return false
}

func (s *Shell) meta(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case ":quit", ":exit", ":q":
		return true
	case ":help", ":h":
		s.println(shellHelp)
	case ":run":
		s.startRun(ctx)
	case ":step":
		s.step(ctx)
	case ":stop":
		if !s.runner.State().Running {
			s.println("Nothing is running.")
			return false
		}
		s.runner.Stop()
		s.println("Stopping after the current line.")
	case ":record":
		s.record(ctx, args)
	case ":list", ":ls":
		s.println(FormatListing(s.buffer.Lines(), s.runner.State()))
	case ":save":
		s.save(args)
	case ":load":
		s.load(args)
	case ":clear":
		if s.runner.State().Running {
			s.println("Cannot clear the script while it runs.")
			return false
		}
		s.buffer.Replace(nil)
		s.runner.Reset()
		s.println("Script cleared.")
	default:
		s.printf("Unknown shell command: %s. Type :help for the list.\n", fields[0])
	}
	return false
}

// exec runs one browser command and appends it to the script. Comments are
// appended without execution; help and export are never appended.
func (s *Shell) exec(ctx context.Context, line string) {
	cmd, ok := command.ParseLine(line)
	if !ok {
		s.buffer.Append(line)
		return
	}
	if s.runner.State().Running {
		s.println("A run is in progress. Use :stop first.")
		return
	}

	resume := s.suspendRecording()
	res, err := s.transport.Send(ctx, schemas.CommandRequest{ID: uuid.NewString(), TabID: s.tabID, Command: line})
	resume()
	if err != nil {
		s.logger.Warn("Command could not be delivered.", zap.String("command", line), zap.Error(err))
		res = schemas.Fail("Transport error: %v", err)
	}
	s.println(FormatResult(res))

	switch cmd.Kind {
	case command.KindHelp, command.KindExport, command.KindUnknown:
		return
	}
	s.buffer.Append(line)
}

// suspendRecording keeps the recorder from recording what the session
// itself does to the page. The returned function resumes it.
func (s *Shell) suspendRecording() (resume func()) {
	if s.recorder == nil || !s.recorder.Active() {
		return func() {}
	}
	s.recorder.Suspend()
	return s.recorder.Resume
}

func (s *Shell) startRun(ctx context.Context) {
	if s.buffer.Len() == 0 {
		s.println("The script is empty.")
		return
	}
	if s.runner.State().Running {
		s.println(runner.ErrRunning.Error())
		return
	}
	resume := s.suspendRecording()
	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		summary, err := s.runner.Run(ctx)
		resume()
		if err != nil {
			s.println(err.Error())
			return
		}
		s.println(FormatSummary(summary))
		s.saveReport(ctx)
	}()
}

func (s *Shell) saveReport(ctx context.Context) {
	if s.reports == nil {
		return
	}
	rep := s.runner.Report()
	if err := s.reports.SaveRun(ctx, &rep); err != nil {
		s.logger.Error("Failed to save run report.", zap.String("run_id", rep.ID), zap.Error(err))
		return
	}
	s.logger.Info("Run report saved.", zap.String("run_id", rep.ID))
}

func (s *Shell) step(ctx context.Context) {
	resume := s.suspendRecording()
	res, err := s.runner.Step(ctx)
	resume()
	switch {
	case errors.Is(err, runner.ErrRunning):
		s.println(err.Error())
	case err != nil:
		s.printf("Step failed: %v\n", err)
	case res.Done:
		s.println("End of script. The next step starts at the top.")
	}
}

func (s *Shell) lineEvent(ev runner.LineEvent) {
	if !ev.Executable && strings.TrimSpace(ev.Line) == "" {
		return
	}
	s.println(FormatEvent(ev))
}

func (s *Shell) record(ctx context.Context, args []string) {
	if s.recorder == nil {
		s.println("Recording is not available for this session.")
		return
	}
	mode := "on"
	if len(args) > 0 {
		mode = strings.ToLower(args[0])
	}
	switch mode {
	case "on":
		if s.recorder.Active() {
			s.println("Already recording.")
			return
		}
		if err := s.recorder.Attach(ctx, s.source); err != nil {
			s.printf("Recording failed: %v\n", err)
			return
		}
		s.println("Recording. Interact with the browser; :record off to finish.")
	case "off":
		if !s.recorder.Active() {
			s.println("Not recording.")
			return
		}
		s.recorder.Stop()
		s.println("Recording stopped.")
	default:
		s.println("Usage: :record on|off")
	}
}

// recorded is the recorder sink.
func (s *Shell) recorded(line string) {
	s.buffer.Append(line)
	s.printf("● %s\n", line)
}

func (s *Shell) save(args []string) {
	if err := s.buffer.Save(strings.Join(args, " ")); err != nil {
		s.printf("Save failed: %v\n", err)
		return
	}
	s.printf("Saved %d lines to %s\n", s.buffer.Len(), s.buffer.Path())
}

func (s *Shell) load(args []string) {
	if len(args) == 0 {
		s.println("Usage: :load <file>")
		return
	}
	if s.runner.State().Running {
		s.println("Cannot load while the script runs.")
		return
	}
	if err := s.buffer.Load(strings.Join(args, " ")); err != nil {
		s.printf("Load failed: %v\n", err)
		return
	}
	s.runner.Reset()
	s.printf("Loaded %d lines from %s\n", s.buffer.Len(), s.buffer.Path())
}
