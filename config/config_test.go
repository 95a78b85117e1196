package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
		},
		{
			name:  "single service - worker",
			input: "worker",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
			},
		},
		{
			name:  "both services",
			input: "http,worker",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeWorker: true,
			},
		},
		{
			name:  "services with spaces",
			input: " http , worker ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeWorker: true,
			},
		},
		{
			name:  "duplicate services",
			input: "worker,worker",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,,",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("ParseServices(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServices(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseServices(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Services != "http,worker" {
		t.Errorf("Services = %q, want %q", cfg.Services, "http,worker")
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, ":8080")
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want 5432", cfg.Postgres.Port)
	}
	if !cfg.Postgres.RunMigrationsOnStart {
		t.Error("Postgres.RunMigrationsOnStart should default to true")
	}
	if cfg.Worker.Concurrency != 1 {
		t.Errorf("Worker.Concurrency = %d, want 1", cfg.Worker.Concurrency)
	}
	if cfg.Worker.Lease != 60*time.Second {
		t.Errorf("Worker.Lease = %v, want 60s", cfg.Worker.Lease)
	}
	if cfg.Workflow.MaxAttempts != 4 {
		t.Errorf("Workflow.MaxAttempts = %d, want 4", cfg.Workflow.MaxAttempts)
	}
	if cfg.Trigger.DedupTTL != 24*time.Hour {
		t.Errorf("Trigger.DedupTTL = %v, want 24h", cfg.Trigger.DedupTTL)
	}
	if cfg.GitHub.CallTimeout != 15*time.Second {
		t.Errorf("GitHub.CallTimeout = %v, want 15s", cfg.GitHub.CallTimeout)
	}
}

func TestAppConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVICES", "worker")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("WORKFLOW_BACKOFF_BASE", "250ms")
	t.Setenv("GITHUB_BASE_URL", "https://github.example.com/api/v3/")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.IsHTTPServerEnabled() {
		t.Error("http should be disabled when SERVICES=worker")
	}
	if !cfg.IsWorkerEnabled() {
		t.Error("worker should be enabled when SERVICES=worker")
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("Worker.Concurrency = %d, want 4", cfg.Worker.Concurrency)
	}
	if cfg.Workflow.BackoffBase != 250*time.Millisecond {
		t.Errorf("Workflow.BackoffBase = %v, want 250ms", cfg.Workflow.BackoffBase)
	}
	if cfg.GitHub.BaseURL != "https://github.example.com/api/v3" {
		t.Errorf("GitHub.BaseURL = %q, trailing slash should be trimmed", cfg.GitHub.BaseURL)
	}
}

func TestSanitizeGuardrails(t *testing.T) {
	cfg := AppConfig{
		Worker:   WorkerConfig{Concurrency: -3, Lease: -time.Second},
		Workflow: WorkflowConfig{MaxAttempts: 0, BackoffBase: time.Second, BackoffMax: time.Millisecond},
	}
	cfg.Sanitize()

	if cfg.Worker.Concurrency != 1 {
		t.Errorf("Worker.Concurrency = %d, want clamp to 1", cfg.Worker.Concurrency)
	}
	if cfg.Worker.Lease != 60*time.Second {
		t.Errorf("Worker.Lease = %v, want 60s default", cfg.Worker.Lease)
	}
	if cfg.Workflow.MaxAttempts != 4 {
		t.Errorf("Workflow.MaxAttempts = %d, want 4", cfg.Workflow.MaxAttempts)
	}
	if cfg.Workflow.BackoffMax != cfg.Workflow.BackoffBase {
		t.Errorf("Workflow.BackoffMax = %v, want raised to base %v", cfg.Workflow.BackoffMax, cfg.Workflow.BackoffBase)
	}
}
