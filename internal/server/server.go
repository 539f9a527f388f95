package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gocast/gocast/internal/config"
	"github.com/gocast/gocast/internal/geo"
	"github.com/gocast/gocast/internal/metrics"
	"github.com/gocast/gocast/internal/source"
	"github.com/gocast/gocast/internal/stream"
)

// Server owns the two listening sockets gocast exposes: the raw source port
// (SOURCE/PUT handshake) and the listener-facing HTTP port (the mount
// point, /api/status, /api/stats, and /metrics).
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	mount       *stream.Mount
	broadcaster *stream.Broadcaster
	sourceH     *source.Handler
	listenerH   *ListenerHandler
	statusH     *StatusHandler
	collectors  *metrics.Collectors

	sourceLn net.Listener
	httpSrv  *http.Server
}

// New wires together a Mount, Broadcaster, source handler, listener
// handler, status handler, and metrics collectors from cfg. It does not
// open any sockets; call Start for that.
func New(cfg *config.Config, mount *stream.Mount, broadcaster *stream.Broadcaster, geoResolver *geo.Resolver, startTime time.Time, log zerolog.Logger) *Server {
	return &Server{
		cfg:         cfg,
		log:         log.With().Str("component", "server").Logger(),
		mount:       mount,
		broadcaster: broadcaster,
		sourceH:     source.NewHandler(mount, cfg.Server.SourcePassword, log),
		listenerH:   NewListenerHandler(mount, cfg, geoResolver, log),
		statusH:     NewStatusHandler(mount, cfg, startTime),
		collectors:  metrics.New(),
	}
}

// Start opens both listening sockets and begins serving. The source port
// runs its own accept loop in a background goroutine; the listener-facing
// HTTP server runs in another. Returns once both sockets are bound.
func (s *Server) Start() error {
	sourceAddr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.SourcePort)
	ln, err := net.Listen("tcp", sourceAddr)
	if err != nil {
		return fmt.Errorf("listen source port: %w", err)
	}
	s.sourceLn = ln
	go func() {
		if err := s.sourceH.Serve(s.sourceLn); err != nil {
			s.log.Info().Err(err).Msg("source listener stopped")
		}
	}()
	s.log.Info().Str("addr", sourceAddr).Msg("source port listening")

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Server.MountPoint, s.listenerH)
	mux.HandleFunc("/api/status", s.statusH.ServeStatus)
	mux.HandleFunc("/api/stats", s.statusH.ServeStats)
	mux.Handle("/metrics", s.collectors.Handler(s.mount, s.broadcaster))

	listenAddr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.ListenPort)
	s.httpSrv = &http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	httpLn, err := net.Listen("tcp", listenAddr)
	if err != nil {
		s.sourceLn.Close()
		return fmt.Errorf("listen listen port: %w", err)
	}
	go func() {
		if err := s.httpSrv.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("listener http server stopped")
		}
	}()
	s.log.Info().Str("addr", listenAddr).Str("mount", s.cfg.Server.MountPoint).Msg("listener port listening")

	return nil
}

// Stop closes the source socket and gracefully shuts down the listener
// HTTP server within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.sourceLn != nil {
		s.sourceLn.Close()
	}
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}
