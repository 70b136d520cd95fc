// File: cmd/repl.go
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/observability"
	"github.com/xkilldash9x/pwscript/internal/recorder"
	"github.com/xkilldash9x/pwscript/internal/repl"
	"github.com/xkilldash9x/pwscript/internal/runner"
)

func newReplCmd(deps dependencies) *cobra.Command {
	var (
		htmlFile   string
		remote     string
		tab        string
		saveReport bool
	)

	replCmd := &cobra.Command{
		Use:   "repl [script]",
		Short: "Start the interactive shell, optionally editing a script file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			buffer := runner.NewScriptBuffer()
			if len(args) == 1 {
				if err := buffer.Load(args[0]); err != nil {
					if !errors.Is(err, fs.ErrNotExist) {
						return err
					}
					if err := buffer.Save(args[0]); err != nil {
						return err
					}
					logger.Debug("Created an empty script.", zap.String("path", args[0]))
				}
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

			opts := []repl.Option{
				repl.WithTab(sess.tabID),
				repl.WithRunnerOptions(runner.WithSettleDelay(cfg.Runner().SettleDelay)),
			}
			if sess.source != nil {
				opts = append(opts, repl.WithRecording(sess.source,
					recorder.WithDebounce(cfg.Recorder().Debounce),
					recorder.WithNavigationGrace(cfg.Recorder().NavigationGrace),
				))
			}
			if saveReport {
				st, cleanup, err := deps.stores.Create(ctx, cfg)
				if err != nil {
					return fmt.Errorf("failed to initialize store: %w", err)
				}
				defer cleanup()
				opts = append(opts, repl.WithReportStore(st))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "pwscript "+Version+". Type :help for commands.")
			shell := repl.New(sess.transport, buffer, cmd.InOrStdin(), out, logger, opts...)
			return shell.Run(ctx)
		},
	}

	f := replCmd.Flags()
	f.StringVar(&htmlFile, "html", "", "run commands against a saved HTML file instead of a browser")
	f.StringVar(&remote, "remote", "", "send commands to a pwscript server at this websocket URL")
	f.StringVar(&tab, "tab", "", "tab id on the remote server")
	f.BoolVar(&saveReport, "save-report", false, "store the report of every :run in the database")
	return replCmd
}
