// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pwscript/internal/observability"
	"github.com/xkilldash9x/pwscript/internal/repl"
	"github.com/xkilldash9x/pwscript/internal/runner"
)

func newRunCmd(deps dependencies) *cobra.Command {
	var (
		htmlFile   string
		remote     string
		tab        string
		watch      bool
		saveReport bool
	)

	runCmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a script file line by line",
		Long: `Executes every line of the script in order and prints one result per line.
The exit status is non-zero when any line failed. With --watch the script is
run again whenever the file is saved, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			buffer, err := runner.LoadScript(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(ctx, cfg, sessionOptions{
				htmlFile: htmlFile,
				remote:   remote,
				tab:      tab,
				buffer:   buffer,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer sess.Shutdown()

			var saver repl.ReportSaver
			if saveReport {
				st, cleanup, err := deps.stores.Create(ctx, cfg)
				if err != nil {
					return fmt.Errorf("failed to initialize store: %w", err)
				}
				defer cleanup()
				saver = st
			}

			sr := &scriptRun{
				out:    cmd.OutOrStdout(),
				logger: logger,
				saver:  saver,
			}
			sr.runner = runner.New(sess.transport, buffer, logger,
				runner.WithTab(sess.tabID),
				runner.WithSettleDelay(cfg.Runner().SettleDelay),
				runner.WithLineHandler(sr.printEvent),
			)

			if !watch {
				summary, err := sr.once(ctx)
				if err != nil {
					return err
				}
				if summary.Failed > 0 {
					return ErrScriptFailed
				}
				if summary.Cancelled {
					return context.Canceled
				}
				return nil
			}
			return sr.watch(ctx, buffer)
		},
	}

	f := runCmd.Flags()
	f.StringVar(&htmlFile, "html", "", "run against a saved HTML file instead of a browser")
	f.StringVar(&remote, "remote", "", "send commands to a pwscript server at this websocket URL")
	f.StringVar(&tab, "tab", "", "tab id on the remote server")
	f.BoolVarP(&watch, "watch", "w", false, "run again whenever the script file changes")
	f.BoolVar(&saveReport, "save-report", false, "store the run report in the database")
	return runCmd
}

// scriptRun prints the progress of a runner and stores its reports.
type scriptRun struct {
	runner *runner.Runner
	logger *zap.Logger
	saver  repl.ReportSaver

	mu  sync.Mutex
	out io.Writer
}

func (sr *scriptRun) println(text string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	fmt.Fprintln(sr.out, text)
}

func (sr *scriptRun) printEvent(ev runner.LineEvent) {
	if !ev.Executable && strings.TrimSpace(ev.Line) == "" {
		return
	}
	sr.println(repl.FormatEvent(ev))
}

func (sr *scriptRun) once(ctx context.Context) (runner.Summary, error) {
	summary, err := sr.runner.Run(ctx)
	if err != nil {
		return summary, err
	}
	sr.println(repl.FormatSummary(summary))

	if sr.saver != nil {
		rep := sr.runner.Report()
		// The report of an interrupted run is still worth keeping.
		if err := sr.saver.SaveRun(context.WithoutCancel(ctx), &rep); err != nil {
			sr.logger.Error("Failed to save run report.", zap.String("run_id", rep.ID), zap.Error(err))
		} else {
			sr.println("Report saved: " + rep.ID)
		}
	}
	return summary, nil
}

// watch runs the script now and after every reload until ctx is done. A
// reload during a run stops it; the new version starts right after.
func (sr *scriptRun) watch(ctx context.Context, buffer *runner.ScriptBuffer) error {
	reloads := make(chan struct{}, 1)
	reloads <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Watch(gctx, buffer, sr.logger, func() {
			sr.runner.Stop()
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reloads:
				sr.runner.Reset()
				if _, err := sr.once(gctx); err != nil {
					return err
				}
				sr.println("Waiting for changes to " + buffer.Path() + " ...")
			}
		}
	})
	return g.Wait()
}
