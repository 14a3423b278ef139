package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sonpython/slether-arena/internal/config"
	"github.com/sonpython/slether-arena/internal/world"
)

const shutdownTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// Allow all origins; the game page may be served from another host.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Server wires the world, hub and broadcast loop behind an HTTP router.
type Server struct {
	cfg      config.Config
	world    *world.World
	hub      *Hub
	loop     *GameLoop
	registry *prometheus.Registry
	log      *slog.Logger
}

// New builds a server from cfg. Extra world options are for tests.
func New(cfg config.Config, log *slog.Logger, opts ...world.Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(reg)

	var policy ConsumptionPolicy = TrustClient{}
	if cfg.StrictEat {
		policy = Proximity{Tolerance: cfg.EatTolerance}
	}

	w := world.New(opts...)
	hub := NewHub(w, policy, metrics, log)
	return &Server{
		cfg:      cfg,
		world:    w,
		hub:      hub,
		loop:     NewGameLoop(w, hub, cfg.BroadcastInterval, metrics, log),
		registry: reg,
		log:      log,
	}
}

// Hub exposes the session manager.
func (s *Server) Hub() *Hub { return s.hub }

// World exposes the world state store.
func (s *Server) World() *world.World { return s.world }

// Handler returns the HTTP routes: the WebSocket endpoint, health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get(config.WebSocketPath, s.serveWS)
	r.Get("/healthz", s.serveHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "ws upgrade error", "err", err)
		return
	}
	conn := NewConn(ws, s.log)
	s.log.InfoContext(r.Context(), "player connected", "session_id", conn.ID(), "remote", r.RemoteAddr)

	// Blocks until the client disconnects.
	if err := conn.Serve(r.Context(), s.hub); err != nil {
		s.log.DebugContext(r.Context(), "session ended", "session_id", conn.ID(), "err", err)
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.hub.Count(),
		"players":  s.world.PlayerCount(),
	})
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs HTTP on ln and the broadcast loop until ctx is cancelled, then
// shuts both down and closes every session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop.Run(gctx)
	})
	g.Go(func() error {
		s.log.InfoContext(gctx, "server listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.InfoContext(gctx, "shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		// Shutdown stops the listener first so no upgrade can slip in after
		// CloseAll; hijacked WebSocket connections are not tracked by it.
		err := httpServer.Shutdown(shutdownCtx)
		s.hub.CloseAll()
		return err
	})
	return g.Wait()
}
