package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/backport-bot/config"
	"github.com/target/backport-bot/internal/adapters/worker"
	"github.com/target/backport-bot/internal/data"
	"github.com/target/backport-bot/internal/observability/statsd"
	"github.com/target/backport-bot/internal/scm"
	"github.com/target/backport-bot/internal/service"
)

// ServiceDeps holds the shared infrastructure used to build services.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed domain services.
type ServiceContainer struct {
	Jobs     *data.JobRepo
	Steps    *data.StepRepo
	Dedup    *data.RedisDedupRepo
	SCM      *scm.GitHubClient
	Trigger  *service.TriggerService
	Workflow *service.BackportWorkflow
	Worker   *worker.Runner
	Metrics  statsd.Sink
}

// NewServices wires repositories and services from shared infrastructure.
// The worker-side services (SCM client, workflow, runner) are only built
// when the worker service mode is enabled.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metrics := buildMetricsSink(logger, cfg.Observability)

	container := ServiceContainer{
		Jobs:    data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: logger.With("component", "job_repo")}),
		Steps:   data.NewStepRepo(deps.DB, nil),
		Dedup:   data.NewRedisDedupRepo(deps.RedisClient, ""),
		Metrics: metrics,
	}

	trigger, err := service.NewTriggerService(service.TriggerServiceOptions{
		Store:    container.Jobs,
		Dedup:    container.Dedup,
		DedupTTL: cfg.Trigger.DedupTTL,
		Logger:   logger.With("component", "trigger"),
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build trigger service: %w", err)
	}
	container.Trigger = trigger

	if !cfg.IsWorkerEnabled() {
		return container, nil
	}

	scmClient, err := scm.NewGitHubClient(scm.GitHubClientOptions{
		BaseURL:     cfg.GitHub.BaseURL,
		Tokens:      scm.NewStaticTokenProvider(cfg.GitHub.Token),
		CallTimeout: cfg.GitHub.CallTimeout,
		Logger:      logger.With("component", "scm"),
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build scm client: %w", err)
	}
	container.SCM = scmClient

	wf, err := service.NewBackportWorkflow(service.BackportWorkflowOptions{
		Jobs:    container.Jobs,
		Steps:   container.Steps,
		SCM:     scmClient,
		Runner:  &service.UnsupportedBackportRunner{},
		Retry:   cfg.Workflow.RetryPolicy(),
		Logger:  logger.With("component", "workflow"),
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build backport workflow: %w", err)
	}
	container.Workflow = wf

	runner, err := worker.NewRunner(worker.RunnerOptions{
		Claimer:      container.Jobs,
		Workflow:     wf,
		Logger:       logger.With("component", "worker"),
		Metrics:      metrics,
		PollInterval: cfg.Worker.PollInterval,
		Lease:        cfg.Worker.Lease,
		Concurrency:  cfg.Worker.Concurrency,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build worker runner: %w", err)
	}
	container.Worker = runner

	return container, nil
}

// buildMetricsSink constructs the StatsD sink. A disabled or failed sink is
// replaced with a no-op client so callers never nil-check.
func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityConfig) statsd.Sink {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "backport",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		disabled, _ := statsd.NewClient(statsd.Config{Enabled: false, Logger: logger})
		return disabled
	}
	return client
}
