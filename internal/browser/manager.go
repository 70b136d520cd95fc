// File: internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/internal/config"
)

const (
	defaultLaunchTimeout = 30 * time.Second
	shutdownGrace        = 5 * time.Second
)

// ErrClosed is returned by NewPage after Shutdown.
var ErrClosed = errors.New("browser manager is shut down")

// flag is one command line switch of a launched browser.
type flag struct {
	name  string
	value any
}

// launchFlags lists the switches applied on top of chromedp's defaults.
// Later entries override earlier ones with the same name.
func launchFlags(cfg config.BrowserConfig) []flag {
	flags := []flag{
		{"enable-automation", false},
		{"headless", cfg.Headless},
		{"hide-scrollbars", cfg.Headless},
		{"mute-audio", true},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			flag{"ignore-certificate-errors", true},
			flag{"allow-insecure-localhost", true},
		)
	}
	if goruntime.GOOS == "linux" {
		// Containers rarely provide the sandbox or a large /dev/shm.
		flags = append(flags,
			flag{"no-sandbox", true},
			flag{"disable-dev-shm-usage", true},
			flag{"disable-setuid-sandbox", true},
		)
	}
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimLeft(parts[0], "-")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, flag{name, parts[1]})
		} else {
			flags = append(flags, flag{name, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for a locally
// launched browser.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	}
	return opts
}

// Manager owns the browser process, or the connection to a remote one, and
// the tabs opened in it.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.Mutex
	pages     map[*Page]struct{}
	firstUsed bool
	closed    bool
}

// NewManager launches a browser, or attaches to cfg.RemoteURL, and checks
// that it responds within the launch timeout.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		pages:  make(map[*Page]struct{}),
	}

	if cfg.RemoteURL != "" {
		m.logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		m.logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	}

	sugar := m.logger.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Infof),
		chromedp.WithErrorf(sugar.Debugf),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx, ctxOpts...)

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := startTab(probeCtx, m.browserCtx); err != nil {
		m.browserCancel()
		m.allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser is ready.")
	return m, nil
}

// startTab performs the first Run on a tab context, which allocates the
// browser and the target. The run must use tabCtx itself since the target
// lives as long as the context of that first run.
func startTab(ctx, tabCtx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tabCtx) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewPage opens a tab. The first call reuses the tab created at launch.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	first := !m.firstUsed
	m.firstUsed = true
	m.mu.Unlock()

	var p *Page
	if first {
		// Cancelling the launch tab would end the browser; Shutdown does that.
		p = newPage(m.browserCtx, nil, m.logger)
	} else {
		tabCtx, cancel := chromedp.NewContext(m.browserCtx)
		if err := startTab(ctx, tabCtx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open tab: %w", err)
		}
		p = newPage(tabCtx, cancel, m.logger)
	}
	p.listen()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		p.Close()
		return nil, ErrClosed
	}
	m.pages[p] = struct{}{}
	return p, nil
}

// ClosePage closes a tab opened by NewPage.
func (m *Manager) ClosePage(p *Page) {
	m.mu.Lock()
	delete(m.pages, p)
	m.mu.Unlock()
	p.Close()
}

// Shutdown closes every tab and the browser. A locally launched browser is
// asked to exit gracefully before its process is killed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pages := make([]*Page, 0, len(m.pages))
	for p := range m.pages {
		pages = append(pages, p)
	}
	m.pages = nil
	m.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}

	var err error
	if m.cfg.RemoteURL == "" {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(m.browserCtx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(shutdownGrace):
			err = errors.New("browser did not exit in time")
		}
	}
	m.browserCancel()
	m.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("Browser shutdown was not clean.", zap.Error(err))
		return err
	}
	m.logger.Info("Browser shut down.")
	return nil
}
