// File: cmd/session.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/browser"
	"github.com/xkilldash9x/pwscript/internal/browser/htmlpage"
	"github.com/xkilldash9x/pwscript/internal/config"
	"github.com/xkilldash9x/pwscript/internal/executor"
	"github.com/xkilldash9x/pwscript/internal/page"
	"github.com/xkilldash9x/pwscript/internal/recorder"
	"github.com/xkilldash9x/pwscript/internal/runner"
	"github.com/xkilldash9x/pwscript/internal/transport"
)

const (
	localTabID      = "main"
	shutdownTimeout = 15 * time.Second
)

// sessionOptions selects where commands run. At most one of htmlFile and
// remote is set; neither means a browser launched from the config.
type sessionOptions struct {
	// htmlFile replays commands against a saved document instead of a
	// browser.
	htmlFile string
	// remote is the websocket URL of a pwscript server.
	remote string
	tab    string
	buffer *runner.ScriptBuffer
}

// session is the command target of one CLI invocation.
type session struct {
	transport transport.Transport
	tabID     string
	// local is nil for remote sessions.
	local *transport.Local
	// source is nil when the target cannot report page events.
	source  recorder.EventSource
	closers []func(context.Context)
}

// Shutdown releases everything the session opened, newest first.
func (s *session) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
}

func openSession(ctx context.Context, cfg *config.Config, opts sessionOptions, logger *zap.Logger) (*session, error) {
	if opts.htmlFile != "" && opts.remote != "" {
		return nil, fmt.Errorf("--html and --remote cannot be combined")
	}

	if opts.remote != "" {
		client, err := transport.DialWS(ctx, opts.remote, logger)
		if err != nil {
			return nil, err
		}
		s := &session{transport: client, tabID: opts.tab}
		s.closers = append(s.closers, func(context.Context) {
			if err := client.Close(); err != nil {
				logger.Debug("Closing the server connection failed.", zap.Error(err))
			}
		})
		return s, nil
	}

	execOpts := []executor.Option{executor.WithLoadTimeout(cfg.Executor().LoadTimeout)}
	if opts.buffer != nil {
		execOpts = append(execOpts, executor.WithScriptSource(opts.buffer))
	}
	local := transport.NewLocal(logger)
	s := &session{transport: local, local: local, tabID: localTabID}

	var p page.Page
	if opts.htmlFile != "" {
		hp, err := htmlpage.FromFile(opts.htmlFile, htmlpage.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		p = hp
	} else {
		m, err := browser.NewManager(ctx, cfg.Browser(), logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(ctx context.Context) {
			if err := m.Shutdown(ctx); err != nil {
				logger.Warn("Error during browser manager shutdown", zap.Error(err))
			}
		})
		bp, err := m.NewPage(ctx)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
		p = bp
		s.source = bp
	}

	local.Register(localTabID, p, execOpts...)
	return s, nil
}
