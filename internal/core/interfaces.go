package core

import (
	"context"
	"time"

	"github.com/target/backport-bot/internal/domain/model"
)

// This file contains the port interfaces between layers. Service
// implementations depend on these interfaces, not on concrete backends.

// JobStore is the single source of truth for externally visible job state.
// Mutation goes through UpdateJob/AppendLog only; readers never write.
type JobStore interface {
	// CreateJob allocates an id, persists the record atomically with
	// status=pending and an empty log, and returns the stored job.
	CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	// GetJob reconstructs the full record including logs. Returns a
	// NotFound AppError if the job is unknown.
	GetJob(ctx context.Context, id string) (*model.Job, error)
	// UpdateJob merges the non-nil fields into the stored record in a
	// single round trip and refreshes updated_at. Status transitions are
	// monotonic; a backward transition is rejected.
	UpdateJob(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error)
	// AppendLog appends one timestamped entry to the job's log without
	// reading existing entries.
	AppendLog(ctx context.Context, id, message string) error
	// ListJobs returns jobs newest-createdAt-first; filter fields are
	// conjunctive exact matches and Limit truncates.
	ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
}

// JobClaimer hands runnable jobs to workflow workers. Claiming moves a
// pending job to in_progress and renews the claim lease; a job whose lease
// expired (worker crash) becomes claimable again so the run can resume.
type JobClaimer interface {
	// ClaimNext claims the next runnable job, or returns
	// model.ErrNoJobsAvailable when there is none.
	ClaimNext(ctx context.Context, lease time.Duration) (*model.Job, error)
	// ExtendClaim renews the lease on a claimed in_progress job. Returns a
	// NotFound AppError when the job is unknown or no longer claimable.
	ExtendClaim(ctx context.Context, id string, lease time.Duration) error
}

// StepStore persists recorded workflow step results keyed by (runID, stepName).
type StepStore interface {
	// GetResult returns the recorded result for the key, or a NotFound
	// AppError when the step has not durably completed.
	GetResult(ctx context.Context, runID, stepName string) (*StepResult, error)
	// PutResult durably records a step result. Recording the same key
	// twice is a conflict: a step result is written at most once.
	PutResult(ctx context.Context, runID, stepName string, res StepResult) error
}

// StepOutcome marks how a recorded step finished.
type StepOutcome string

const (
	// StepCompleted is a successfully completed step with a recorded value.
	StepCompleted StepOutcome = "completed"
	// StepFailed is a fatally failed step; replay re-raises the failure
	// without re-running the side effect.
	StepFailed StepOutcome = "failed"
)

// StepResult is the durable record of one step execution. Transient
// failures are never recorded; only terminal outcomes are.
type StepResult struct {
	Outcome StepOutcome `json:"outcome"`
	Value   []byte      `json:"value,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SCMClient is the source-control hosting collaborator. Implementations
// carry their own per-call timeouts and surface rate limiting through
// typed errors; they must not run a retry loop of their own, the workflow
// engine owns retries.
type SCMClient interface {
	ReactToComment(ctx context.Context, call SCMCall, commentID int64, reaction string) error
	GetPR(ctx context.Context, call SCMCall, prNumber int) (*model.PRDetails, error)
	ListPRCommits(ctx context.Context, call SCMCall, prNumber int) ([]model.Commit, error)
	GetPRDiff(ctx context.Context, call SCMCall, prNumber int) (string, error)
	// GetBranch returns a not-found error when the branch does not exist.
	GetBranch(ctx context.Context, call SCMCall, branch string) error
	CreatePR(ctx context.Context, call SCMCall, req CreatePRRequest) (int, error)
	CreateIssueComment(ctx context.Context, call SCMCall, issueNumber int, body string) error
}

// SCMCall scopes one collaborator call to an installation and repository.
// It is threaded through the workflow run instead of a global client.
type SCMCall struct {
	InstallationID int64
	Repository     string // "owner/name"
}

// CreatePRRequest groups parameters for SCMClient.CreatePR.
type CreatePRRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// BackportRunner executes the actual git/sandbox backport producing a
// candidate branch. A merge conflict is a business outcome carried in the
// returned value, not an error; errors are reserved for runner faults.
type BackportRunner interface {
	PerformBackport(ctx context.Context, req BackportRequest) (*model.BackportOutcome, error)
}

// BackportRequest groups inputs for BackportRunner.PerformBackport.
type BackportRequest struct {
	Repository   string
	TargetBranch string
	PR           model.PRDetails
	Analysis     model.ChangeAnalysis
}

// DedupGuard provides a best-effort once-only guard keyed by string, used
// to keep one trigger comment from spawning multiple jobs.
type DedupGuard interface {
	// Acquire returns true if the key was newly claimed, false if something
	// already holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
