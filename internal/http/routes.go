package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/backport-bot/internal/core"
)

// RouterServices holds the services and settings needed by the HTTP router.
type RouterServices struct {
	Jobs     core.JobStore
	APIToken string       // Required: bearer token guarding /api routes
	Logger   *slog.Logger // Optional
}

// NewRouter creates and configures the HTTP router. API routes sit behind
// bearer-token auth; the health endpoint is open for probes.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobHandlers := &JobHandlers{Jobs: services.Jobs}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/jobs", jobHandlers.GetOrList)

	mux := http.NewServeMux()
	mux.Handle("/api/", RequireToken(services.APIToken)(api))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return Recover(logger)(Logging(logger)(mux))
}
