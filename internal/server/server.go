// Package server provides HTTP server lifecycle management.
// Includes graceful shutdown handling and supervision of background workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// RunFunc is a background worker loop. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error

type worker struct {
	name string
	run  RunFunc
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []ShutdownFunc
	workers         []worker
	mu              sync.Mutex
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With("component", "server"),
	}
}

// OnShutdown registers a function to be called during graceful shutdown.
// Shutdown functions are called in reverse order (LIFO) after the HTTP server stops.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("component_stopping", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component_shutdown_failed", "name", name, "error", err)
			return err
		}
		s.logger.Info("component_stopped", "name", name)
		return nil
	})
}

// Go registers a background worker started by Run. Workers share the
// server's cancellation context. A worker error stops the server.
func (s *Server) Go(name string, fn RunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: fn})
}

// Run serves until ctx is cancelled, SIGINT/SIGTERM arrives or a worker
// fails, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server_starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	s.mu.Lock()
	workers := s.workers
	s.mu.Unlock()
	for _, w := range workers {
		g.Go(func() error {
			s.logger.Info("worker_started", "name", w.name)
			if err := w.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker %s: %w", w.name, err)
			}
			s.logger.Info("worker_exited", "name", w.name)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.gracefulShutdown()
	})

	return g.Wait()
}

// gracefulShutdown stops the HTTP server, then the registered components.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutdown_started", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Continue with other shutdowns even if HTTP fails
		s.logger.Error("http_shutdown_failed", "error", err)
	}

	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown_completed_with_errors", "error_count", len(errs))
		return errors.Join(errs...)
	}

	s.logger.Info("server_stopped")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
