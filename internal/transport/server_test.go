// File: internal/transport/server_test.go
package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/config"
)

var testCfg = config.TransportConfig{
	ListenAddr:   "127.0.0.1:0",
	RateLimit:    1000,
	Burst:        1000,
	ReadTimeout:  time.Second,
	WriteTimeout: time.Second,
}

func newTestServer(t *testing.T, cfg config.TransportConfig) (*httptest.Server, *Local) {
	t.Helper()
	l := NewLocal(zaptest.NewLogger(t))
	l.Register("main", newSite())
	ts := httptest.NewServer(NewServer(l, cfg, zaptest.NewLogger(t)).Handler())
	t.Cleanup(ts.Close)
	return ts, l
}

func postCommand(t *testing.T, base, tab, line string) (int, schemas.CommandResponse) {
	t.Helper()
	body, err := json.Marshal(schemas.CommandRequest{ID: "req-1", Command: line})
	require.NoError(t, err)
	resp, err := http.Post(base+"/v1/tabs/"+tab+"/commands", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out schemas.CommandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServerCommandEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testCfg)

	status, resp := postCommand(t, ts.URL, "main", "goto site.test")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "req-1", resp.ID)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Success, resp.Result.Data)

	status, resp = postCommand(t, ts.URL, "main", `verify-text "Nope"`)
	assert.Equal(t, http.StatusOK, status, "a failed assertion is still a delivered command")
	require.NotNil(t, resp.Result)
	assert.Equal(t, schemas.KindError, resp.Result.Kind)
	assert.True(t, strings.HasPrefix(resp.Result.Data, "FAIL: "))

	status, resp = postCommand(t, ts.URL, "other", "reload")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "unknown tab")

	r, err := http.Post(ts.URL+"/v1/tabs/main/commands", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestServerTabsAndHealth(t *testing.T) {
	ts, _ := newTestServer(t, testCfg)
	postCommand(t, ts.URL, "main", "goto site.test")

	resp, err := http.Get(ts.URL + "/v1/tabs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var tabs []schemas.TabInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tabs))
	assert.Equal(t, []schemas.TabInfo{{ID: "main", URL: "https://site.test", Title: "Home"}}, tabs)

	h, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	h.Body.Close()
	assert.Equal(t, http.StatusOK, h.StatusCode)
}

type sendOnly struct{}

func (sendOnly) Send(context.Context, schemas.CommandRequest) (schemas.Result, error) {
	return schemas.Ok("ok"), nil
}

func TestServerTabsNeedALister(t *testing.T) {
	ts := httptest.NewServer(NewServer(sendOnly{}, testCfg, nil).Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/v1/tabs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestServerRateLimit(t *testing.T) {
	cfg := testCfg
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	ts, _ := newTestServer(t, cfg)

	status, _ := postCommand(t, ts.URL, "main", "goto site.test")
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/v1/tabs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	h, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	h.Body.Close()
	assert.Equal(t, http.StatusOK, h.StatusCode, "health checks are not limited")
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func TestWSClientRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, testCfg)
	ctx := context.Background()

	c, err := DialWS(ctx, wsURL(ts.URL), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Send(ctx, schemas.CommandRequest{TabID: "main", Command: "goto site.test"})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Data)

	res, err = c.Send(ctx, schemas.CommandRequest{TabID: "main", Command: `click "Docs"`})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Data)

	res, err = c.Send(ctx, schemas.CommandRequest{TabID: "main", Command: `verify-title "Docs"`})
	require.NoError(t, err)
	assert.True(t, res.Passed(), res.Data)

	_, err = c.Send(ctx, schemas.CommandRequest{TabID: "ghost", Command: "reload"})
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestWSClientConcurrentRequests(t *testing.T) {
	ts, _ := newTestServer(t, testCfg)
	ctx := context.Background()
	c, err := DialWS(ctx, wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Send(ctx, schemas.CommandRequest{TabID: "main", Command: "goto site.test"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Send(ctx, schemas.CommandRequest{TabID: "main", Command: `verify-text "Hello there"`})
			assert.NoError(t, err)
			assert.True(t, res.Passed())
		}()
	}
	wg.Wait()
}

func TestServeShutdownClosesClients(t *testing.T) {
	l := NewLocal(zaptest.NewLogger(t))
	l.Register("main", newSite())
	srv := NewServer(l, testCfg, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	c, err := DialWS(context.Background(), "ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	res, err := c.Send(context.Background(), schemas.CommandRequest{Command: "goto site.test"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	cancel()
	require.NoError(t, <-errc)

	require.Eventually(t, func() bool {
		_, err := c.Send(context.Background(), schemas.CommandRequest{Command: "reload"})
		return errors.Is(err, ErrClosed)
	}, 5*time.Second, 20*time.Millisecond)
	c.Close()
}
