// Package server runs the HTTP listener and ties its shutdown to the
// lifecycle coordinator.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JaimeStill/form-intake/internal/config"
	"github.com/JaimeStill/form-intake/pkg/lifecycle"
)

// System is an HTTP server bound to the lifecycle of the process.
type System interface {
	// Start binds the listen address, serves in the background and
	// registers graceful shutdown with lc. Bind failures are returned.
	Start(lc *lifecycle.Coordinator) error

	// Addr is the bound address once Start has returned.
	Addr() string

	// Err receives at most one error if serving stops for any reason
	// other than shutdown.
	Err() <-chan error

	// Stopped is closed once graceful shutdown has finished, whether or
	// not in-flight requests drained within the shutdown timeout.
	Stopped() <-chan struct{}
}

type server struct {
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
	addr            string
	errs            chan error
	stopped         chan struct{}
}

func New(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) System {
	return &server{
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeoutDuration(),
			ReadHeaderTimeout: cfg.ReadTimeoutDuration(),
			WriteTimeout:      cfg.WriteTimeoutDuration(),
			IdleTimeout:       cfg.IdleTimeoutDuration(),
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger.With("system", "server"),
		shutdownTimeout: cfg.ShutdownTimeoutDuration(),
		addr:            cfg.Addr(),
		errs:            make(chan error, 1),
		stopped:         make(chan struct{}),
	}
}

func (s *server) Addr() string {
	return s.addr
}

func (s *server) Err() <-chan error {
	return s.errs
}

func (s *server) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *server) Start(lc *lifecycle.Coordinator) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped serving", "error", err)
			s.errs <- err
		}
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		defer close(s.stopped)
		s.logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("server shutdown incomplete", "error", err)
			return
		}
		s.logger.Info("server shutdown complete")
	})

	return nil
}
