// Package service holds the business logic: turning trigger comments into
// jobs, running the backport workflow, and analyzing change sets.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	"github.com/target/backport-bot/internal/observability/statsd"
	"github.com/target/backport-bot/internal/workflow"
)

// Step names, also the durable step-result keys. Renaming one orphans
// recorded results for in-flight runs.
const (
	stepAcknowledge     = "acknowledge"
	stepFetchPRDetails  = "fetch_pr_details"
	stepValidateBranch  = "validate_target_branch"
	stepAnalyzeChanges  = "analyze_changes"
	stepPerformBackport = "perform_backport"
	stepFinalize        = "finalize"
)

// BackportWorkflowOptions groups dependencies for BackportWorkflow.
type BackportWorkflowOptions struct {
	Jobs    core.JobStore       // Required: job record store
	Steps   core.StepStore      // Required: durable step results
	SCM     core.SCMClient      // Required: source-control collaborator
	Runner  core.BackportRunner // Required: sandboxed git backport runner
	Retry   workflow.RetryPolicy
	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// BackportWorkflow drives one backport job through its fixed step list.
// Each step checkpoints through the durable executor, so a restarted run
// resumes after the last completed step instead of repeating side effects.
type BackportWorkflow struct {
	jobs     core.JobStore
	scm      core.SCMClient
	runner   core.BackportRunner
	executor *workflow.Executor
	engine   *workflow.Engine
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewBackportWorkflow constructs a BackportWorkflow.
func NewBackportWorkflow(opts BackportWorkflowOptions) (*BackportWorkflow, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Steps == nil {
		return nil, errors.New("step store is required")
	}
	if opts.SCM == nil {
		return nil, errors.New("scm client is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("backport runner is required")
	}

	return &BackportWorkflow{
		jobs:     opts.Jobs,
		scm:      opts.SCM,
		runner:   opts.Runner,
		executor: workflow.NewExecutor(opts.Steps, opts.Logger),
		engine: workflow.NewEngine(workflow.EngineOptions{
			Retry:   opts.Retry,
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		}),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// runState carries typed step outputs across one Run invocation. On resume
// the closures repopulate it from recorded step results.
type runState struct {
	pr       model.PRDetails
	analysis model.ChangeAnalysis
	outcome  model.BackportOutcome
}

// Run executes the workflow for one claimed job. A job already in a
// terminal status is left untouched; an interrupted run (context
// cancellation) keeps the job in_progress so a later claim resumes it.
func (w *BackportWorkflow) Run(ctx context.Context, job *model.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	if job.Status.Terminal() {
		return nil
	}

	if job.Status == model.JobStatusPending {
		updated, err := w.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
			Status: model.StatusPtr(model.JobStatusInProgress),
		})
		if err != nil {
			return fmt.Errorf("move job to in_progress: %w", err)
		}
		job = updated
	}

	state := &runState{}
	result := w.engine.Run(ctx, job.ID, w.buildSteps(job, state))

	switch result.State {
	case workflow.StateSucceeded:
		w.count("backport.job", "succeeded")
		return nil
	case workflow.StateAborted:
		if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
			// Interruption, not failure. The job stays in_progress and a
			// later claim resumes from the recorded steps.
			w.count("backport.job", "interrupted")
			return result.Err
		}
		w.failJob(ctx, job, result.Err)
		w.count("backport.job", "failed")
		return result.Err
	default:
		return fmt.Errorf("unexpected workflow state %q", result.State)
	}
}

func (w *BackportWorkflow) buildSteps(job *model.Job, state *runState) []workflow.Step {
	call := core.SCMCall{InstallationID: job.InstallationID, Repository: job.Repository}

	return []workflow.Step{
		{Name: stepAcknowledge, Do: func(ctx context.Context) error {
			return w.acknowledge(ctx, job, call)
		}},
		{Name: stepFetchPRDetails, Do: func(ctx context.Context) error {
			pr, err := workflow.Run(ctx, w.executor, job.ID, stepFetchPRDetails,
				func(ctx context.Context) (model.PRDetails, error) {
					return w.fetchPRDetails(ctx, job, call)
				})
			if err != nil {
				return err
			}
			state.pr = pr
			return nil
		}},
		{Name: stepValidateBranch, Do: func(ctx context.Context) error {
			_, err := workflow.Run(ctx, w.executor, job.ID, stepValidateBranch,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, w.validateTargetBranch(ctx, job, call)
				})
			return err
		}},
		{Name: stepAnalyzeChanges, Do: func(ctx context.Context) error {
			analysis, err := workflow.Run(ctx, w.executor, job.ID, stepAnalyzeChanges,
				func(ctx context.Context) (model.ChangeAnalysis, error) {
					return w.analyzeChanges(ctx, job, state.pr)
				})
			if err != nil {
				return err
			}
			state.analysis = analysis
			return nil
		}},
		{Name: stepPerformBackport, Do: func(ctx context.Context) error {
			outcome, err := workflow.Run(ctx, w.executor, job.ID, stepPerformBackport,
				func(ctx context.Context) (model.BackportOutcome, error) {
					return w.performBackport(ctx, job, state)
				})
			if err != nil {
				return err
			}
			state.outcome = outcome
			return nil
		}},
		{Name: stepFinalize, Do: func(ctx context.Context) error {
			_, err := workflow.Run(ctx, w.executor, job.ID, stepFinalize,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, w.finalize(ctx, job, call, state)
				})
			return err
		}},
	}
}

// acknowledge reacts to the trigger comment. Acknowledgment is cosmetic:
// failures are logged and recorded, never fatal, never retried.
func (w *BackportWorkflow) acknowledge(ctx context.Context, job *model.Job, call core.SCMCall) error {
	type ackResult struct {
		Acknowledged bool `json:"acknowledged"`
	}

	_, err := workflow.Run(ctx, w.executor, job.ID, stepAcknowledge,
		func(ctx context.Context) (ackResult, error) {
			reactErr := w.scm.ReactToComment(ctx, call, job.CommentID, "+1")
			if reactErr != nil {
				if w.logger != nil {
					w.logger.WarnContext(ctx, "could not acknowledge trigger comment",
						"job_id", job.ID,
						"comment_id", job.CommentID,
						"error", reactErr,
					)
				}
				w.appendLog(ctx, job.ID, "Could not add reaction to the trigger comment; continuing.")
				return ackResult{Acknowledged: false}, nil
			}
			w.appendLog(ctx, job.ID, fmt.Sprintf(
				"Backport of #%d to %s requested by %s: acknowledged.",
				job.SourcePR, job.TargetBranch, job.RequestedBy,
			))
			return ackResult{Acknowledged: true}, nil
		})
	return err
}

// fetchPRDetails loads PR metadata, commit list, and diff.
func (w *BackportWorkflow) fetchPRDetails(ctx context.Context, job *model.Job, call core.SCMCall) (model.PRDetails, error) {
	var zero model.PRDetails

	pr, err := w.scm.GetPR(ctx, call, job.SourcePR)
	if err != nil {
		return zero, err
	}
	if validateErr := pr.Validate(); validateErr != nil {
		return zero, workflow.Fatal(fmt.Errorf("pull request #%d is not usable: %w", job.SourcePR, validateErr))
	}

	commits, err := w.scm.ListPRCommits(ctx, call, job.SourcePR)
	if err != nil {
		return zero, err
	}
	diff, err := w.scm.GetPRDiff(ctx, call, job.SourcePR)
	if err != nil {
		return zero, err
	}

	pr.Commits = commits
	pr.Diff = diff

	w.appendLog(ctx, job.ID, fmt.Sprintf(
		"Fetched PR #%d (%d commits).", pr.Number, len(pr.Commits),
	))
	return *pr, nil
}

// validateTargetBranch confirms the target branch exists. A missing branch
// is fatal with the branch name in the message.
func (w *BackportWorkflow) validateTargetBranch(ctx context.Context, job *model.Job, call core.SCMCall) error {
	if err := w.scm.GetBranch(ctx, call, job.TargetBranch); err != nil {
		if workflow.IsFatal(err) {
			return workflow.Fatalf("target branch %q does not exist in %s", job.TargetBranch, job.Repository)
		}
		return err
	}
	w.appendLog(ctx, job.ID, fmt.Sprintf("Target branch %s exists.", job.TargetBranch))
	return nil
}

// analyzeChanges is pure computation over the fetched diff; no network.
func (w *BackportWorkflow) analyzeChanges(ctx context.Context, job *model.Job, pr model.PRDetails) (model.ChangeAnalysis, error) {
	analysis := AnalyzeDiff(pr.Diff)
	w.appendLog(ctx, job.ID, fmt.Sprintf(
		"Analyzed changes: %d files, +%d/-%d lines, complexity %s.",
		analysis.FilesChanged, analysis.Additions, analysis.Deletions, analysis.Complexity,
	))
	return analysis, nil
}

func (w *BackportWorkflow) performBackport(ctx context.Context, job *model.Job, state *runState) (model.BackportOutcome, error) {
	outcome, err := w.runner.PerformBackport(ctx, core.BackportRequest{
		Repository:   job.Repository,
		TargetBranch: job.TargetBranch,
		PR:           state.pr,
		Analysis:     state.analysis,
	})
	if err != nil {
		return model.BackportOutcome{}, err
	}
	if outcome.Success {
		w.appendLog(ctx, job.ID, fmt.Sprintf("Backport branch %s prepared.", outcome.Branch))
	} else {
		w.appendLog(ctx, job.ID, "Backport could not be applied: "+outcome.Error)
	}
	return *outcome, nil
}

// finalize is the branching terminal step: success opens the PR and
// completes the job; a business failure fails the job with the outcome's
// reason. Either way the job reaches a terminal status here.
func (w *BackportWorkflow) finalize(ctx context.Context, job *model.Job, call core.SCMCall, state *runState) error {
	if !state.outcome.Success {
		w.commentBestEffort(ctx, job, call, failureComment(job, state.outcome.Error))
		if _, err := w.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
			Status: model.StatusPtr(model.JobStatusFailed),
			Error:  model.StringPtr(state.outcome.Error),
		}); err != nil {
			return fmt.Errorf("record backport failure: %w", err)
		}
		w.appendLog(ctx, job.ID, "Job failed: "+state.outcome.Error)
		return nil
	}

	prNumber, err := w.scm.CreatePR(ctx, call, core.CreatePRRequest{
		Title: fmt.Sprintf("[Backport %s] %s", job.TargetBranch, state.pr.Title),
		Head:  state.outcome.Branch,
		Base:  job.TargetBranch,
		Body: fmt.Sprintf("Automated backport of #%d to `%s`, requested by @%s.",
			job.SourcePR, job.TargetBranch, job.RequestedBy),
	})
	if err != nil {
		return err
	}

	w.commentBestEffort(ctx, job, call, fmt.Sprintf(
		"Backport PR #%d created targeting `%s`.", prNumber, job.TargetBranch,
	))

	if _, err := w.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
		Status:   model.StatusPtr(model.JobStatusCompleted),
		ResultPR: model.IntPtr(prNumber),
	}); err != nil {
		return fmt.Errorf("record backport success: %w", err)
	}
	w.appendLog(ctx, job.ID, fmt.Sprintf("Job completed: backport PR #%d.", prNumber))
	return nil
}

// failJob terminalizes an aborted run: status=failed with the abort reason
// and a best-effort failure comment. Safe to call for a run whose failure
// was already recorded (replayed abort): the job is read first and a
// terminal job is left alone, so the requester is not notified twice.
func (w *BackportWorkflow) failJob(ctx context.Context, job *model.Job, runErr error) {
	current, err := w.jobs.GetJob(ctx, job.ID)
	if err != nil {
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "could not read job after aborted run",
				"job_id", job.ID, "error", err)
		}
		return
	}
	if current.Status.Terminal() {
		return
	}

	reason := failureReason(runErr)
	if _, err := w.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Error:  model.StringPtr(reason),
	}); err != nil {
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "could not mark job failed",
				"job_id", job.ID, "error", err)
		}
		return
	}
	w.appendLog(ctx, job.ID, "Job failed: "+reason)

	call := core.SCMCall{InstallationID: job.InstallationID, Repository: job.Repository}
	w.commentBestEffort(ctx, job, call, failureComment(job, reason))
}

// commentBestEffort posts a status comment; delivery problems are logged
// and swallowed, reporting never blocks the job outcome.
func (w *BackportWorkflow) commentBestEffort(ctx context.Context, job *model.Job, call core.SCMCall, body string) {
	if err := w.scm.CreateIssueComment(ctx, call, job.SourcePR, body); err != nil {
		if w.logger != nil {
			w.logger.WarnContext(ctx, "could not post status comment",
				"job_id", job.ID, "error", err)
		}
	}
}

func (w *BackportWorkflow) appendLog(ctx context.Context, jobID, message string) {
	if err := w.jobs.AppendLog(ctx, jobID, message); err != nil && w.logger != nil {
		w.logger.WarnContext(ctx, "could not append job log",
			"job_id", jobID, "error", err)
	}
}

func (w *BackportWorkflow) count(name, result string) {
	if w.metrics != nil {
		w.metrics.Count(name, 1, map[string]string{"result": result})
	}
}

// failureReason produces the human-readable error stored on the job and
// shown to the requester; the raw error chain stays in the logs.
func failureReason(err error) string {
	if err == nil {
		return "backport failed for an unknown reason"
	}
	var fatal *workflow.FatalError
	if errors.As(err, &fatal) {
		return fatal.Err.Error()
	}
	return err.Error()
}

func failureComment(job *model.Job, reason string) string {
	return fmt.Sprintf("Backport of #%d to `%s` failed: %s",
		job.SourcePR, job.TargetBranch, reason)
}
