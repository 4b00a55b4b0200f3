package http

import (
	"context"
	"errors"
	"fxrelay/internal/config"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server is an HTTP server bound to a listener but not yet serving.
type Server struct {
	srv      *http.Server
	listener net.Listener
}

// Listen binds the configured port. Port "0" picks a free one.
func Listen(cfg config.HTTPServer, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv:      &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout},
		listener: listener,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logrus.Infof("✅ HTTP server listening on %s", s.Addr())

	errCh := make(chan error, 1)
	go func() {
		err := s.srv.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// Start is Listen followed by Run.
func Start(ctx context.Context, cfg config.HTTPServer, handler http.Handler) error {
	s, err := Listen(cfg, handler)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
