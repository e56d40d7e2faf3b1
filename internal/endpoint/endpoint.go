package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	log "github.com/sirupsen/logrus"
)

// Endpoint serves the HTTP API as a supervised child. Each Serve call binds a
// fresh listener, so a restart after a listen failure starts cleanly.
type Endpoint struct {
	cfg     config.Server
	handler http.Handler

	// addr is set once the listener is bound; used by tests binding ":0".
	addr chan string
}

func New(cfg config.Server, handler http.Handler) *Endpoint {
	return &Endpoint{cfg: cfg, handler: handler, addr: make(chan string, 1)}
}

func (e *Endpoint) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         e.cfg.Addr,
		Handler:      e.handler,
		ReadTimeout:  e.cfg.ReadTimeout,
		WriteTimeout: e.cfg.WriteTimeout,
		IdleTimeout:  e.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	listener, err := net.Listen("tcp", e.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", e.cfg.Addr, err)
	}
	select {
	case e.addr <- listener.Addr().String():
	default:
	}
	log.Infof("Starting server on %s", listener.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := e.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
		_ = srv.Close()
	}
	return ctx.Err()
}

func (e *Endpoint) String() string {
	return "endpoint"
}

// Addr blocks until the listener is bound and returns its address.
func (e *Endpoint) Addr(ctx context.Context) (string, error) {
	select {
	case addr := <-e.addr:
		return addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
