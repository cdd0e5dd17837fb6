package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// Server owns the listening http.Server of the gateway.
type Server struct {
	server *http.Server
	logger logger.Logger
}

func NewServer(addr string, h http.Handler, log logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down server...", nil)
	return s.server.Shutdown(ctx)
}
