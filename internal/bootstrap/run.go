package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/target/backport-bot/config"
	"golang.org/x/sync/errgroup"
)

// ServiceOrchestrationConfig holds dependencies for running the enabled
// services to completion.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal arrives or a service fails. On SIGINT/SIGTERM the HTTP
// server drains in-flight requests and the worker stops between jobs; an
// interrupted workflow run resumes on the next start.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	if cfg.Config.IsHTTPServerEnabled() {
		server := newHTTPServer(cfg.Config.HTTP, cfg.Services, logger)

		group.Go(func() error {
			logger.Info("starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if cfg.Config.IsWorkerEnabled() && cfg.Services.Worker != nil {
		group.Go(func() error {
			return cfg.Services.Worker.Run(gctx)
		})
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("services stopped")
	return err
}
