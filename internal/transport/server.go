// File: internal/transport/server.go
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pwscript/api/schemas"
	"github.com/xkilldash9x/pwscript/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxFrameBytes   = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server exposes a Transport over HTTP and WebSocket.
type Server struct {
	logger   *zap.Logger
	cfg      config.TransportConfig
	target   Transport
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer wraps target. When target also implements TabLister the tab
// listing endpoint is served.
func NewServer(target Transport, cfg config.TransportConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	limit, burst := rate.Limit(cfg.RateLimit), cfg.Burst
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		logger:  logger.Named("server"),
		cfg:     cfg,
		target:  target,
		limiter: rate.NewLimiter(limit, burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The server binds to loopback by default; clients are local tools.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/ws", s.handleWS)
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/tabs", s.handleTabs)
		r.Post("/tabs/{tabID}/commands", s.handleCommand)
	})
	return r
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// and closes open WebSocket connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Serving commands.", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.closeConns()
		s.wg.Wait()
		return err
	})
	return g.Wait()
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.target.(TabLister)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "tab listing not supported"})
		return
	}
	tabs, err := lister.Tabs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tabs)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req schemas.CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, schemas.CommandResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	req.TabID = chi.URLParam(r, "tabID")

	resp := s.dispatch(r.Context(), req)
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusBadGateway
		if resp.unknownTab {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, resp.CommandResponse)
}

type dispatched struct {
	schemas.CommandResponse
	unknownTab bool
}

func (s *Server) dispatch(ctx context.Context, req schemas.CommandRequest) dispatched {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	res, err := s.target.Send(ctx, req)
	if err != nil {
		s.logger.Debug("Command not delivered.", zap.String("id", req.ID), zap.String("tab_id", req.TabID), zap.Error(err))
		return dispatched{
			CommandResponse: schemas.CommandResponse{ID: req.ID, Error: err.Error()},
			unknownTab:      errors.Is(err, ErrUnknownTab),
		}
	}
	return dispatched{CommandResponse: schemas.CommandResponse{ID: req.ID, Result: &res}}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed.", zap.Error(err))
		return
	}
	if !s.track(conn) {
		conn.Close()
		return
	}
	s.logger.Debug("WebSocket connection established.", zap.String("remote_addr", r.RemoteAddr))
	s.serveConn(conn)
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// closeConns closes every open WebSocket and refuses new ones. Servers are
// not reusable after shutdown.
func (s *Server) closeConns() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for c := range conns {
		_ = c.Close()
	}
}

// serveConn reads request frames and answers them in order on the same
// connection. A ping ticker keeps idle connections alive.
func (s *Server) serveConn(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	var writeMu sync.Mutex
	pingDone := make(chan struct{})

	defer func() {
		cancel()
		<-pingDone
		s.untrack(conn)
		_ = conn.Close()
	}()

	pongWait := s.cfg.ReadTimeout * 4
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	write := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	go func() {
		defer close(pingDone)
		ticker := time.NewTicker(pongWait * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error.", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var req schemas.CommandRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if werr := write(schemas.CommandResponse{Error: "invalid frame: " + err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := write(s.dispatch(ctx, req).CommandResponse); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
