package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"captionkit-server-go/internal/platform/config"
	"captionkit-server-go/internal/platform/logging"
)

// Server hosts the API engine.
type Server struct {
	cfg     config.WebConfig
	ip      string
	logger  *logging.Logger
	httpSrv *http.Server
}

// NewServer builds the API HTTP server around a prepared engine.
func NewServer(cfg *config.Config, handler http.Handler, logger *logging.Logger) *Server {
	return &Server{
		cfg:    cfg.Web,
		ip:     cfg.Server.IP,
		logger: logger,
		httpSrv: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Web.Port),
			Handler: handler,
		},
	}
}

// Start serves the API until ctx is canceled. Blocking.
func (s *Server) Start(ctx context.Context) error {
	if ctx != nil {
		go func() {
			<-ctx.Done()
			_ = s.Stop()
		}()
	}

	s.logger.InfoTag("HTTP", "api listening on http://%s", s.httpSrv.Addr)

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests.
func (s *Server) Stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
