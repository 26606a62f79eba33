package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"captionkit-server-go/internal/domain/session"
	"captionkit-server-go/internal/platform/config"
	"captionkit-server-go/internal/platform/logging"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the websocket endpoint over HTTP.
type Server struct {
	cfg      config.ServerConfig
	router   *Router
	registry *session.Registry
	logger   *logging.Logger
	httpSrv  *http.Server
}

// NewServer builds the websocket transport server.
func NewServer(cfg config.ServerConfig, router *Router, registry *session.Registry, logger *logging.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Server{
		cfg:      cfg,
		router:   router,
		registry: registry,
		logger:   logger,
	}
}

// Start listens for upgrades until ctx is canceled. Blocking.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.IP, s.cfg.Port)

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.router.Handle)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			_ = s.Stop()
		}()
	}

	s.logger.InfoTag("WebSocket", "listening on ws://%s%s", addr, s.cfg.Path)

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains the HTTP server and closes every live session.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.registry.CloseAll("server shutting down")

	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
