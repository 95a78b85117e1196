package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/backport-bot/internal/observability/statsd"
)

// RunState is the state of one workflow run.
type RunState string

const (
	// StateNotStarted is a run before its first step dispatch.
	StateNotStarted RunState = "not_started"
	// StateRunning is a run with at least one step dispatched.
	StateRunning RunState = "running"
	// StateSucceeded is a run whose final step completed without error.
	StateSucceeded RunState = "succeeded"
	// StateAborted is a run stopped by a fatal error or an exhausted
	// retry budget.
	StateAborted RunState = "aborted"
)

// Step is one durably-checkpointed unit of work. Do is expected to route
// its side effects through the Executor so replay after an interruption
// skips already-completed work.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
}

// RetryPolicy bounds transient-error retries per step.
type RetryPolicy struct {
	// MaxAttempts is the per-step attempt ceiling, including the first try.
	MaxAttempts int
	// BackoffBase is the delay after the first failed attempt; it doubles
	// per attempt up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy matches the service defaults: four attempts with
// 500ms base backoff capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BackoffBase: 500 * time.Millisecond,
		BackoffMax:  30 * time.Second,
	}
}

func (p RetryPolicy) sanitized() RetryPolicy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = DefaultRetryPolicy().BackoffBase
	}
	if out.BackoffMax < out.BackoffBase {
		out.BackoffMax = out.BackoffBase
	}
	return out
}

// backoff returns the delay before the given retry (attempt starts at 1).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

// EngineOptions groups dependencies for the workflow engine.
type EngineOptions struct {
	Retry   RetryPolicy
	Logger  *slog.Logger // optional
	Metrics statsd.Sink  // optional
	// Sleep overrides the backoff delay, used by tests. Defaults to a
	// context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine sequences an ordered list of steps for one run, retries transient
// step failures with bounded exponential backoff, aborts on fatal errors,
// and resumes after interruption from durably recorded step results.
type Engine struct {
	retry   RetryPolicy
	logger  *slog.Logger
	metrics statsd.Sink
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a workflow engine.
func NewEngine(opts EngineOptions) *Engine {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Engine{
		retry:   opts.Retry.sanitized(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		sleep:   sleep,
	}
}

// Result is the terminal outcome of one Run invocation.
type Result struct {
	State RunState
	// Err is the abort reason when State is StateAborted.
	Err error
}

// Run drives the steps in order. Steps that previously recorded a durable
// result replay without re-executing their side effects, which is what
// makes a resumed run continue after the last durable step rather than
// from the start. Interruption is only observed between steps.
func (e *Engine) Run(ctx context.Context, runID string, steps []Step) Result {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return e.abort(ctx, runID, step.Name, err)
		}

		if err := e.runStep(ctx, runID, step); err != nil {
			return e.abort(ctx, runID, step.Name, err)
		}

		if e.logger != nil {
			e.logger.DebugContext(ctx, "workflow step completed",
				"run_id", runID,
				"step", step.Name,
				"index", i,
			)
		}
	}

	e.count("workflow.run", map[string]string{"result": "succeeded"})
	return Result{State: StateSucceeded}
}

// runStep dispatches one step, retrying transient failures up to the
// attempt ceiling.
func (e *Engine) runStep(ctx context.Context, runID string, step Step) error {
	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		err := step.Do(ctx)
		if err == nil {
			e.count("workflow.step_attempt", map[string]string{"step": step.Name, "result": "ok"})
			return nil
		}
		if IsFatal(err) {
			e.count("workflow.step_attempt", map[string]string{"step": step.Name, "result": "fatal"})
			return err
		}

		lastErr = err
		e.count("workflow.step_attempt", map[string]string{"step": step.Name, "result": "transient"})

		if attempt == e.retry.MaxAttempts {
			break
		}

		delay := e.retry.backoff(attempt)
		if e.logger != nil {
			e.logger.WarnContext(ctx, "retrying workflow step",
				"run_id", runID,
				"step", step.Name,
				"attempt", attempt,
				"backoff", delay,
				"error", err,
			)
		}
		e.count("workflow.retry", map[string]string{"step": step.Name})
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}

	return fmt.Errorf("step %s failed after %d attempts: %w", step.Name, e.retry.MaxAttempts, lastErr)
}

func (e *Engine) abort(ctx context.Context, runID, stepName string, err error) Result {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, "workflow run aborted",
			"run_id", runID,
			"step", stepName,
			"fatal", IsFatal(err),
			"error", err,
		)
	}
	e.count("workflow.run", map[string]string{"result": "aborted"})
	return Result{State: StateAborted, Err: err}
}

func (e *Engine) count(name string, tags map[string]string) {
	if e.metrics != nil {
		e.metrics.Count(name, 1, tags)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
