// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/config"
	"github.com/xkilldash9x/pwscript/internal/page"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Executor() config.ExecutorConfig {
	args := m.Called()
	return args.Get(0).(config.ExecutorConfig)
}

func (m *MockConfig) Runner() config.RunnerConfig {
	args := m.Called()
	return args.Get(0).(config.RunnerConfig)
}

func (m *MockConfig) Recorder() config.RecorderConfig {
	args := m.Called()
	return args.Get(0).(config.RecorderConfig)
}

func (m *MockConfig) Transport() config.TransportConfig {
	args := m.Called()
	return args.Get(0).(config.TransportConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetBrowserRemoteURL(u string) {
	m.Called(u)
}

func (m *MockConfig) SetRunnerSettleDelay(d time.Duration) {
	m.Called(d)
}

var _ config.Interface = (*MockConfig)(nil)

// -- Page Mock --

// MockPage mocks page.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) History(ctx context.Context) (int, []page.HistoryEntry, error) {
	args := m.Called(ctx)
	var entries []page.HistoryEntry
	if e := args.Get(1); e != nil {
		entries = e.([]page.HistoryEntry)
	}
	return args.Int(0), entries, args.Error(2)
}

func (m *MockPage) NavigateToHistoryEntry(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPage) WaitForLoad(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) Document(ctx context.Context) (*page.Node, error) {
	args := m.Called(ctx)
	var doc *page.Node
	if d := args.Get(0); d != nil {
		doc = d.(*page.Node)
	}
	return doc, args.Error(1)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) BodyText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Checked(ctx context.Context, n *page.Node) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) AccessibilityTree(ctx context.Context) ([]page.AXNode, error) {
	args := m.Called(ctx)
	var nodes []page.AXNode
	if n := args.Get(0); n != nil {
		nodes = n.([]page.AXNode)
	}
	return nodes, args.Error(1)
}

func (m *MockPage) ScrollIntoView(ctx context.Context, n *page.Node) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockPage) BoxCenter(ctx context.Context, n *page.Node) (page.Point, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(page.Point), args.Error(1)
}

func (m *MockPage) MovePointer(ctx context.Context, p page.Point) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPage) Click(ctx context.Context, n *page.Node, clickCount int) error {
	return m.Called(ctx, n, clickCount).Error(0)
}

func (m *MockPage) Focus(ctx context.Context, n *page.Node) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockPage) SetValue(ctx context.Context, n *page.Node, value string) error {
	return m.Called(ctx, n, value).Error(0)
}

func (m *MockPage) InsertText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockPage) DispatchEvent(ctx context.Context, n *page.Node, eventType string) error {
	return m.Called(ctx, n, eventType).Error(0)
}

func (m *MockPage) DispatchKey(ctx context.Context, ev page.KeyEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockPage) Evaluate(ctx context.Context, expression string) (page.EvalResult, error) {
	args := m.Called(ctx, expression)
	return args.Get(0).(page.EvalResult), args.Error(1)
}

func (m *MockPage) ContentSize(ctx context.Context) (float64, float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func (m *MockPage) SetViewportOverride(ctx context.Context, width, height int64) error {
	return m.Called(ctx, width, height).Error(0)
}

func (m *MockPage) ClearViewportOverride(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) CaptureScreenshot(ctx context.Context, clip *page.Clip) ([]byte, error) {
	args := m.Called(ctx, clip)
	var data []byte
	if d := args.Get(0); d != nil {
		data = d.([]byte)
	}
	return data, args.Error(1)
}

var _ page.Page = (*MockPage)(nil)

// -- Transport Mock --

// MockTransport mocks the command transport used by the runner and the shell.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, req schemas.CommandRequest) (schemas.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schemas.Result), args.Error(1)
}
