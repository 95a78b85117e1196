package bootstrap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/target/backport-bot/config"
	httpx "github.com/target/backport-bot/internal/http"
)

const httpShutdownTimeout = 10 * time.Second

// newHTTPServer builds the job query API server. Middleware (recover,
// logging, token auth) is applied inside the router.
func newHTTPServer(cfg config.HTTPConfig, services ServiceContainer, logger *slog.Logger) *http.Server {
	handler := httpx.NewRouter(httpx.RouterServices{
		Jobs:     services.Jobs,
		APIToken: cfg.APIToken,
		Logger:   logger,
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
