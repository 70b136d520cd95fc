// File: internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/executor"
	"github.com/xkilldash9x/pwscript/internal/page"
)

// ErrUnknownTab is returned for requests addressing a tab that is not
// registered.
var ErrUnknownTab = errors.New("unknown tab")

// Transport delivers one command line to a page and returns its result. A
// returned error means the command was not delivered; command failures are
// reported inside the Result.
type Transport interface {
	Send(ctx context.Context, req schemas.CommandRequest) (schemas.Result, error)
}

// TabLister is implemented by transports that can enumerate their pages.
type TabLister interface {
	Tabs(ctx context.Context) ([]schemas.TabInfo, error)
}

type tab struct {
	// mu admits one command at a time per page.
	mu   sync.Mutex
	page page.Page
	exec *executor.Executor
}

// Local is an in-process Transport over a registry of pages.
type Local struct {
	mu     sync.RWMutex
	logger *zap.Logger
	tabs   map[string]*tab
}

// NewLocal creates an empty registry.
func NewLocal(logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		logger: logger.Named("transport"),
		tabs:   make(map[string]*tab),
	}
}

// Register adds a page and returns its tab id. An empty id is replaced by a
// generated one.
func (l *Local) Register(id string, p page.Page, opts ...executor.Option) string {
	if id == "" {
		id = uuid.NewString()
	}
	t := &tab{page: p, exec: executor.New(p, l.logger, opts...)}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tabs[id] = t
	l.logger.Debug("Registered tab.", zap.String("tab_id", id))
	return id
}

// Unregister removes a tab. In-flight commands complete normally.
func (l *Local) Unregister(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tabs, id)
}

// Executor returns the executor of a tab, e.g. to attach a script source.
func (l *Local) Executor(id string) (*executor.Executor, bool) {
	t, err := l.lookup(id)
	if err != nil {
		return nil, false
	}
	return t.exec, true
}

func (l *Local) lookup(id string) (*tab, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id == "" && len(l.tabs) == 1 {
		for _, t := range l.tabs {
			return t, nil
		}
	}
	t, ok := l.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTab, id)
	}
	return t, nil
}

// Send executes req on its tab. Commands for the same tab are serialized.
// An empty TabID addresses the only tab when exactly one is registered.
func (l *Local) Send(ctx context.Context, req schemas.CommandRequest) (schemas.Result, error) {
	t, err := l.lookup(req.TabID)
	if err != nil {
		return schemas.Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return schemas.Result{}, err
	}
	return t.exec.ExecuteLine(ctx, req.Command), nil
}

// Tabs describes every registered page, ordered by id.
func (l *Local) Tabs(ctx context.Context) ([]schemas.TabInfo, error) {
	l.mu.RLock()
	ids := make([]string, 0, len(l.tabs))
	tabs := make(map[string]*tab, len(l.tabs))
	for id, t := range l.tabs {
		ids = append(ids, id)
		tabs[id] = t
	}
	l.mu.RUnlock()
	sort.Strings(ids)

	infos := make([]schemas.TabInfo, 0, len(ids))
	for _, id := range ids {
		info := schemas.TabInfo{ID: id}
		p := tabs[id].page
		if u, err := p.URL(ctx); err == nil {
			info.URL = u
		}
		if title, err := p.Title(ctx); err == nil {
			info.Title = title
		}
		infos = append(infos, info)
	}
	return infos, nil
}

var (
	_ Transport = (*Local)(nil)
	_ TabLister = (*Local)(nil)
)
