// File: internal/transport/transport_test.go
package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/browser/htmlpage"
	"github.com/xkilldash9x/pwscript/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const homePage = `<html><head><title>Home</title></head><body><h1>Hello there</h1><a href="/docs">Docs</a></body></html>`

func newSite() *htmlpage.Page {
	return htmlpage.New(map[string]string{
		"https://site.test":      homePage,
		"https://site.test/docs": `<html><head><title>Docs</title></head><body>Reference</body></html>`,
	})
}

func TestLocalSendRoutesByTab(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(zaptest.NewLogger(t))
	a := l.Register("a", newSite())
	b := l.Register("", newSite())
	assert.Equal(t, "a", a)
	assert.NotEmpty(t, b, "an empty id is generated")

	res, err := l.Send(ctx, schemas.CommandRequest{TabID: "a", Command: "goto site.test"})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Data)

	res, err = l.Send(ctx, schemas.CommandRequest{TabID: "a", Command: `verify-text "Hello"`})
	require.NoError(t, err)
	assert.True(t, res.Passed())

	// Tab b never navigated.
	res, err = l.Send(ctx, schemas.CommandRequest{TabID: b, Command: `verify-title "Home"`})
	require.NoError(t, err)
	assert.False(t, res.Passed())

	_, err = l.Send(ctx, schemas.CommandRequest{TabID: "zzz", Command: "reload"})
	assert.ErrorIs(t, err, ErrUnknownTab)
	_, err = l.Send(ctx, schemas.CommandRequest{Command: "reload"})
	assert.ErrorIs(t, err, ErrUnknownTab, "an empty tab id is ambiguous with two tabs")

	_, ok := l.Executor("a")
	assert.True(t, ok)
	l.Unregister("a")
	_, ok = l.Executor("a")
	assert.False(t, ok)

	res, err = l.Send(ctx, schemas.CommandRequest{Command: "goto site.test"})
	require.NoError(t, err, "the only tab is the default")
	assert.True(t, res.Success)
}

func TestLocalTabs(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(nil)
	l.Register("b", newSite())
	l.Register("a", newSite())
	_, err := l.Send(ctx, schemas.CommandRequest{TabID: "b", Command: "goto site.test"})
	require.NoError(t, err)

	tabs, err := l.Tabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []schemas.TabInfo{
		{ID: "a", URL: "about:blank"},
		{ID: "b", URL: "https://site.test", Title: "Home"},
	}, tabs)
}

func TestLocalSerializesCommandsPerTab(t *testing.T) {
	mp := new(mocks.MockPage)
	var active, peak int32
	mp.On("BodyText", mock.Anything).Run(func(mock.Arguments) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}).Return("hello", nil)

	l := NewLocal(zaptest.NewLogger(t))
	l.Register("t", mp)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Send(context.Background(), schemas.CommandRequest{TabID: "t", Command: `verify-text "hello"`})
			assert.NoError(t, err)
			assert.True(t, res.Passed())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	mp.AssertNumberOfCalls(t, "BodyText", 8)
}

func TestLocalSendCancelledWhileQueued(t *testing.T) {
	l := NewLocal(nil)
	l.Register("t", newSite())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Send(ctx, schemas.CommandRequest{TabID: "t", Command: "reload"})
	assert.ErrorIs(t, err, context.Canceled)
}
