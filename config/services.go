package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/target/backport-bot/internal/workflow"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the job query API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the workflow worker that claims and runs jobs.
	ServiceModeWorker ServiceMode = "worker"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeWorker}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. It validates that all service names are valid and
// returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains workflow worker service configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"1"`

	// Lease is the duration a claimed job is held before it becomes
	// claimable again; the worker heartbeats at half this interval.
	Lease time.Duration `env:"WORKER_JOB_LEASE" envDefault:"60s"`

	// PollInterval is the idle wait between claim attempts when the queue
	// is empty.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.Lease <= 0 {
		w.Lease = 60 * time.Second
	}
	if w.PollInterval <= 0 {
		w.PollInterval = 5 * time.Second
	}
}

// WorkflowConfig contains per-step retry configuration for workflow runs.
type WorkflowConfig struct {
	// MaxAttempts is the per-step attempt ceiling, including the first try.
	MaxAttempts int `env:"WORKFLOW_MAX_ATTEMPTS" envDefault:"4"`

	// BackoffBase is the delay after the first failed attempt; it doubles
	// per attempt up to BackoffMax.
	BackoffBase time.Duration `env:"WORKFLOW_BACKOFF_BASE" envDefault:"500ms"`
	BackoffMax  time.Duration `env:"WORKFLOW_BACKOFF_MAX"  envDefault:"30s"`
}

// Sanitize applies guardrails to workflow configuration values.
func (w *WorkflowConfig) Sanitize() {
	def := workflow.DefaultRetryPolicy()
	if w.MaxAttempts < 1 {
		w.MaxAttempts = def.MaxAttempts
	}
	if w.BackoffBase <= 0 {
		w.BackoffBase = def.BackoffBase
	}
	if w.BackoffMax < w.BackoffBase {
		w.BackoffMax = w.BackoffBase
	}
}

// RetryPolicy converts the configuration into an engine retry policy.
func (w WorkflowConfig) RetryPolicy() workflow.RetryPolicy {
	return workflow.RetryPolicy{
		MaxAttempts: w.MaxAttempts,
		BackoffBase: w.BackoffBase,
		BackoffMax:  w.BackoffMax,
	}
}

// TriggerConfig contains trigger comment handling configuration.
type TriggerConfig struct {
	// DedupTTL is how long a trigger comment id is remembered so delivery
	// retries do not spawn duplicate jobs.
	DedupTTL time.Duration `env:"TRIGGER_DEDUP_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to trigger configuration values.
func (t *TriggerConfig) Sanitize() {
	if t.DedupTTL <= 0 {
		t.DedupTTL = 24 * time.Hour
	}
}
