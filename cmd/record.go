// File: cmd/record.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/command"
	"github.com/xkilldash9x/pwscript/internal/observability"
	"github.com/xkilldash9x/pwscript/internal/recorder"
	"github.com/xkilldash9x/pwscript/internal/runner"
)

func newRecordCmd() *cobra.Command {
	var (
		startURL string
		output   string
	)

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Open a browser window and record your interactions as a script",
		Long: `Opens a visible browser, records clicks, typing and navigation as script
lines and prints them as they are captured. Press Enter (or close stdin) to
finish. The script is written to --out, or printed when no file is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.Browser().RemoteURL == "" {
				cfg.SetBrowserHeadless(false)
			}

			sess, err := openSession(ctx, cfg, sessionOptions{}, logger)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer sess.Shutdown()

			out := cmd.OutOrStdout()
			var outMu sync.Mutex
			buffer := runner.NewScriptBuffer()
			sink := func(line string) {
				buffer.Append(line)
				outMu.Lock()
				fmt.Fprintf(out, "● %s\n", line)
				outMu.Unlock()
			}

			if startURL != "" {
				line := "goto " + command.Quote(startURL)
				res, err := sess.transport.Send(ctx, schemas.CommandRequest{ID: uuid.NewString(), TabID: sess.tabID, Command: line})
				if err != nil {
					return err
				}
				if !res.Passed() {
					return fmt.Errorf("failed to open %s: %s", startURL, res.Data)
				}
				sink(line)
			}

			rec := recorder.New(logger, sink,
				recorder.WithDebounce(cfg.Recorder().Debounce),
				recorder.WithNavigationGrace(cfg.Recorder().NavigationGrace),
			)
			if err := rec.Attach(ctx, sess.source); err != nil {
				return fmt.Errorf("failed to start recording: %w", err)
			}
			fmt.Fprintln(out, "Recording. Press Enter to finish.")
			waitForEnter(ctx, cmd.InOrStdin())
			rec.Stop()
			logger.Debug("Recording finished.", zap.Int("lines", buffer.Len()))

			if output == "" {
				for _, line := range buffer.Lines() {
					fmt.Fprintln(out, line)
				}
				return nil
			}
			if err := buffer.Save(output); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %d lines to %s\n", buffer.Len(), buffer.Path())
			return nil
		},
	}

	recordCmd.Flags().StringVarP(&startURL, "url", "u", "", "page to open before recording")
	recordCmd.Flags().StringVarP(&output, "out", "o", "", "script file to write")
	return recordCmd
}

// waitForEnter returns after one input line, at EOF or when ctx is done.
func waitForEnter(ctx context.Context, in io.Reader) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bufio.NewReader(in).ReadString('\n')
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
