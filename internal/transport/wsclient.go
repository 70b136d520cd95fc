// File: internal/transport/wsclient.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pwscript/api/schemas"
)

// ErrClosed is returned by WSClient.Send after the connection is gone.
var ErrClosed = errors.New("transport connection closed")

// WSClient is a Transport talking to a Server over one WebSocket. Requests
// may be issued concurrently; responses are matched by request id.
type WSClient struct {
	logger *zap.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan schemas.CommandResponse
	err     error
	done    chan struct{}
}

// DialWS connects to the /ws endpoint at url, e.g. ws://127.0.0.1:9322/ws.
func DialWS(ctx context.Context, url string, logger *zap.Logger) (*WSClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	c := &WSClient{
		logger:  logger.Named("wsclient"),
		conn:    conn,
		pending: make(map[string]chan schemas.CommandResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		var resp schemas.CommandResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Debug("Dropping malformed frame.", zap.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("Dropping uncorrelated response.", zap.String("id", resp.ID), zap.String("error", resp.Error))
			continue
		}
		ch <- resp
	}
}

// fail records the terminal error and releases every waiting Send.
func (c *WSClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Send delivers req and waits for its response or for ctx to end.
func (c *WSClient) Send(ctx context.Context, req schemas.CommandRequest) (schemas.Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ch := make(chan schemas.CommandResponse, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return schemas.Result{}, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	data, err := json.Marshal(req)
	if err == nil {
		c.writeMu.Lock()
		err = c.conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
	}
	if err != nil {
		c.forget(req.ID)
		return schemas.Result{}, fmt.Errorf("failed to send command: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return schemas.Result{}, err
		}
		return decodeResponse(resp)
	case <-ctx.Done():
		c.forget(req.ID)
		return schemas.Result{}, ctx.Err()
	}
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func decodeResponse(resp schemas.CommandResponse) (schemas.Result, error) {
	if resp.Error != "" {
		if strings.HasPrefix(resp.Error, ErrUnknownTab.Error()) {
			return schemas.Result{}, fmt.Errorf("%w: %s", ErrUnknownTab, strings.TrimPrefix(resp.Error, ErrUnknownTab.Error()+": "))
		}
		return schemas.Result{}, fmt.Errorf("remote: %s", resp.Error)
	}
	if resp.Result == nil {
		return schemas.Result{}, errors.New("remote: empty response")
	}
	return *resp.Result, nil
}

// Close shuts the connection down and waits for the reader to exit.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
