package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/JaimeStill/form-intake/internal/config"
	"github.com/JaimeStill/form-intake/internal/infrastructure"
	"github.com/JaimeStill/form-intake/internal/server"
)

// Service coordinates the lifecycle of all subsystems.
type Service struct {
	infra *infrastructure.Infrastructure
	http  server.System
}

// NewService builds the infrastructure, routes and HTTP server without
// connecting anything.
func NewService(cfg *config.Config, opts ...infrastructure.Option) (*Service, error) {
	infra, err := infrastructure.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	handler := buildMiddleware(infra).Apply(router.Build())

	infra.Logger.Info(
		"service initialized",
		"addr", cfg.Server.Addr(),
		"driver", cfg.Database.Driver,
		"storage", cfg.Storage.Backend,
		"version", version,
	)

	return &Service{
		infra: infra,
		http:  server.New(&cfg.Server, handler, infra.Logger),
	}, nil
}

// Start connects the external systems and begins serving. A failed start
// leaves registered shutdown hooks in place for Shutdown to release.
// The database and object storage are released only after the HTTP
// server has drained.
func (s *Service) Start(ctx context.Context) error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(ctx); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}
	s.infra.ReleaseAfter(s.http.Stopped())

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown stops all subsystems within timeout.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}

func serve(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	svc, err := NewService(cfg)
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		if serr := svc.Shutdown(cfg.ShutdownTimeoutDuration()); serr != nil {
			svc.infra.Logger.Error("shutdown after failed start", "error", serr)
		}
		return fmt.Errorf("start service: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		svc.infra.Logger.Info("shutdown signal received")
	case serveErr = <-svc.http.Err():
	}

	if err := svc.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}

	svc.infra.Logger.Info("service stopped")
	return nil
}
