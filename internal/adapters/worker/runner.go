// Package worker provides the job runner adapter that claims backport jobs
// and drives them through the durable workflow.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	"github.com/target/backport-bot/internal/observability/metrics"
	"github.com/target/backport-bot/internal/observability/statsd"
	"golang.org/x/sync/errgroup"
)

// Workflow runs one claimed job to a checkpoint or completion.
type Workflow interface {
	Run(ctx context.Context, job *model.Job) error
}

// RunnerOptions configures the backport job runner adapter.
type RunnerOptions struct {
	Claimer  core.JobClaimer
	Workflow Workflow
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// Job processing settings
	PollInterval time.Duration // idle wait between claim attempts; defaults to 5s
	Lease        time.Duration // per-job claim lease; defaults to 60s
	Concurrency  int           // number of worker goroutines; defaults to 1
}

// Runner claims runnable jobs and processes them with a bounded worker pool.
// A job interrupted mid-run keeps its in_progress status, so once its lease
// expires another claim resumes it from the last recorded step.
type Runner struct {
	claimer  core.JobClaimer
	workflow Workflow
	logger   *slog.Logger
	metrics  statsd.Sink
	poll     time.Duration
	lease    time.Duration
	workers  int
}

// NewRunner creates a new backport job runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	return &Runner{
		claimer:  opts.Claimer,
		workflow: opts.Workflow,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		poll:     opts.PollInterval,
		lease:    opts.Lease,
		workers:  opts.Concurrency,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Claimer == nil {
		return errors.New("job claimer is required")
	}
	if opts.Workflow == nil {
		return errors.New("workflow is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = 60 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the job runner and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting backport job runner",
		"workers", r.workers, "lease", r.lease, "poll_interval", r.poll)

	group, gctx := errgroup.WithContext(ctx)
	for range r.workers {
		group.Go(func() error { return r.runWorkerLoop(gctx) })
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWorkerLoop claims and processes jobs until the context is cancelled.
// After a processed job it claims again immediately; it only waits out the
// poll interval when the queue is empty.
func (r *Runner) runWorkerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		job, err := r.claimer.ClaimNext(ctx, r.lease)
		switch {
		case err == nil:
			r.processJob(ctx, job)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForPoll(ctx) {
				return nil
			}
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			r.logger.ErrorContext(ctx, "failed to claim next backport job", "error", err)
			return err
		}
	}
	return nil
}

// processJob runs a single claimed job through the workflow.
func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	r.logger.InfoContext(ctx, "processing backport job",
		"job_id", job.ID, "repository", job.Repository, "source_pr", job.SourcePR)

	stopHB := r.startHeartbeat(ctx, job.ID)
	defer stopHB()

	start := time.Now()

	if err := r.workflow.Run(ctx, job); err != nil {
		r.logger.ErrorContext(ctx, "backport job run failed", "job_id", job.ID, "error", err)
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			Transition: "run",
			Result:     metrics.ResultError,
			Duration:   time.Since(start),
			Err:        err,
		})
		return
	}

	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Transition: "run",
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
}

// startHeartbeat starts a background ticker to extend the job lease
// periodically. It returns a stop function to end the heartbeat.
func (r *Runner) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := r.lease / 2
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.claimer.ExtendClaim(ctx, jobID, r.lease); err != nil {
					r.logger.WarnContext(ctx, "heartbeat not applied (claim may be lost)",
						"job_id", jobID, "error", err)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(done) }
}

// waitForPoll waits one poll interval or until the context is cancelled.
func (r *Runner) waitForPoll(ctx context.Context) bool {
	timer := time.NewTimer(r.poll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
