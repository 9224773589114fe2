package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/cronbot/internal/logger"
)

// Server exposes the Prometheus handler on /metrics.
type Server struct {
	mu     sync.Mutex
	logger *logger.Logger
	srv    *http.Server
	ln     net.Listener
}

func NewServer(log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{logger: log}
}

// Start binds the listener and serves in the background. The bind is
// synchronous so a taken port fails here, not in the goroutine.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	s.srv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", err,
				logger.Field{Key: "addr", Value: addr})
		}
	}()

	s.logger.Info("Metrics server listening",
		logger.Field{Key: "addr", Value: ln.Addr().String()})
	return nil
}

// Stop shuts the server down, waiting up to the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	srv := s.srv
	s.srv = nil
	s.ln = nil

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr reports the bound address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
