package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	"github.com/target/backport-bot/internal/mocks"
	"github.com/target/backport-bot/internal/testutil"
	"github.com/target/backport-bot/internal/testutil/memstore"
	"github.com/target/backport-bot/internal/workflow"
)

// fastRetry keeps backoff delays negligible in tests.
func fastRetry() workflow.RetryPolicy {
	return workflow.RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  time.Millisecond,
	}
}

type workflowFixture struct {
	jobs   *memstore.JobStore
	steps  *memstore.StepStore
	scm    *mocks.MockSCMClient
	runner *mocks.MockBackportRunner
	wf     *BackportWorkflow
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &workflowFixture{
		jobs:   memstore.NewJobStore(),
		steps:  memstore.NewStepStore(),
		scm:    mocks.NewMockSCMClient(ctrl),
		runner: mocks.NewMockBackportRunner(ctrl),
	}

	wf, err := NewBackportWorkflow(BackportWorkflowOptions{
		Jobs:   f.jobs,
		Steps:  f.steps,
		SCM:    f.scm,
		Runner: f.runner,
		Retry:  fastRetry(),
	})
	require.NoError(t, err)
	f.wf = wf
	return f
}

func (f *workflowFixture) createJob(t *testing.T) *model.Job {
	t.Helper()
	job, err := f.jobs.CreateJob(context.Background(), testutil.NewJobRequest().Build())
	require.NoError(t, err)
	return job
}

func successfulOutcome() *model.BackportOutcome {
	return &model.BackportOutcome{Success: true, Branch: "backport/42-to-v1"}
}

func TestBackportWorkflow_FullSuccess(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), job.CommentID, "+1").Return(nil)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).Return(testutil.MergedPRDetails(), nil)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).
		Return(testutil.MergedPRDetails().Commits, nil)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).
		Return(testutil.MergedPRDetails().Diff, nil)
	f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").Return(nil)
	f.runner.EXPECT().PerformBackport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.BackportRequest) (*model.BackportOutcome, error) {
			assert.Equal(t, "acme/widgets", req.Repository)
			assert.Equal(t, "v1", req.TargetBranch)
			assert.Equal(t, 42, req.PR.Number)
			assert.Equal(t, model.ComplexityLow, req.Analysis.Complexity)
			return successfulOutcome(), nil
		})
	f.scm.EXPECT().CreatePR(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ core.SCMCall, req core.CreatePRRequest) (int, error) {
			assert.Equal(t, "backport/42-to-v1", req.Head)
			assert.Equal(t, "v1", req.Base)
			assert.Contains(t, req.Title, "[Backport v1]")
			return 77, nil
		})
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).Return(nil)

	require.NoError(t, f.wf.Run(ctx, job))

	final, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	require.NotNil(t, final.ResultPR)
	assert.Equal(t, 77, *final.ResultPR)
	assert.Nil(t, final.Error)
	assert.NotEmpty(t, final.Logs)
}

func TestBackportWorkflow_MissingBranchFailsWithoutRetry(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).Return(testutil.MergedPRDetails(), nil)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).Return(nil, nil)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).Return("", nil)
	// A missing branch is fatal: exactly one attempt.
	f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").
		Return(workflow.Fatalf("not found")).Times(1)
	// Failure comment for the requester.
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ core.SCMCall, _ int, body string) error {
			assert.Contains(t, body, "failed")
			assert.Contains(t, body, "v1")
			return nil
		})

	err := f.wf.Run(ctx, job)
	require.Error(t, err)
	assert.True(t, workflow.IsFatal(err))

	final, getErr := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, `"v1"`)
	assert.Nil(t, final.ResultPR)
}

func TestBackportWorkflow_TransientErrorsRetryThenSucceed(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).Return(testutil.MergedPRDetails(), nil)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).Return(nil, nil)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).Return("", nil)

	// Two bad gateways, then success: three attempts total.
	gomock.InOrder(
		f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").
			Return(workflow.Transient(errors.New("bad gateway"))),
		f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").
			Return(workflow.Transient(errors.New("bad gateway"))),
		f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").Return(nil),
	)

	f.runner.EXPECT().PerformBackport(gomock.Any(), gomock.Any()).Return(successfulOutcome(), nil)
	f.scm.EXPECT().CreatePR(gomock.Any(), gomock.Any(), gomock.Any()).Return(77, nil)
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).Return(nil)

	require.NoError(t, f.wf.Run(ctx, job))

	final, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
}

func TestBackportWorkflow_RetryBudgetExhausted(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	// fetch_pr_details keeps failing transiently; three attempts is the cap.
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).
		Return(nil, workflow.Transient(errors.New("bad gateway"))).Times(3)
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).Return(nil)

	err := f.wf.Run(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	final, getErr := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
}

func TestBackportWorkflow_MergeConflictIsBusinessFailure(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).Return(testutil.MergedPRDetails(), nil)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).Return(nil, nil)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).Return("", nil)
	f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").Return(nil)
	f.runner.EXPECT().PerformBackport(gomock.Any(), gomock.Any()).
		Return(&model.BackportOutcome{Success: false, Error: "merge conflict in cache.go"}, nil)
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ core.SCMCall, _ int, body string) error {
			assert.Contains(t, body, "merge conflict")
			return nil
		})

	// A business failure terminalizes the job but the run itself succeeds.
	require.NoError(t, f.wf.Run(ctx, job))

	final, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "merge conflict")
	assert.Nil(t, final.ResultPR)
	// No PR was opened.
}

func TestBackportWorkflow_ResumeSkipsRecordedSteps(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)

	runCtx, cancel := context.WithCancel(context.Background())

	// First run: interrupted right after validate_target_branch completes.
	// Every side effect so far happens exactly once.
	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).Times(1)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).
		Return(testutil.MergedPRDetails(), nil).Times(1)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).
		Return(testutil.MergedPRDetails().Commits, nil).Times(1)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).
		Return(testutil.MergedPRDetails().Diff, nil).Times(1)
	f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").
		DoAndReturn(func(context.Context, core.SCMCall, string) error {
			cancel()
			return nil
		}).Times(1)

	err := f.wf.Run(runCtx, job)
	require.ErrorIs(t, err, context.Canceled)

	// Interrupted, not failed: the job is still in flight.
	mid, getErr := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusInProgress, mid.Status)

	// Second run resumes: recorded steps replay without touching the SCM,
	// only the remaining steps execute.
	f.runner.EXPECT().PerformBackport(gomock.Any(), gomock.Any()).
		Return(successfulOutcome(), nil).Times(1)
	f.scm.EXPECT().CreatePR(gomock.Any(), gomock.Any(), gomock.Any()).Return(77, nil).Times(1)
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).
		Return(nil).Times(1)

	require.NoError(t, f.wf.Run(context.Background(), mid))

	final, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	require.NotNil(t, final.ResultPR)
	assert.Equal(t, 77, *final.ResultPR)
}

func TestBackportWorkflow_TerminalJobIsLeftAlone(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	_, err := f.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusInProgress),
	})
	require.NoError(t, err)
	failed, err := f.jobs.UpdateJob(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Error:  model.StringPtr("target branch \"v1\" does not exist"),
	})
	require.NoError(t, err)

	// No SCM expectations: a terminal job triggers no calls at all.
	require.NoError(t, f.wf.Run(ctx, failed))
}

func TestBackportWorkflow_AcknowledgeFailureDoesNotFailRun(t *testing.T) {
	f := newWorkflowFixture(t)
	job := f.createJob(t)
	ctx := context.Background()

	f.scm.EXPECT().ReactToComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(workflow.Transient(errors.New("bad gateway"))).Times(1)
	f.scm.EXPECT().GetPR(gomock.Any(), gomock.Any(), 42).Return(testutil.MergedPRDetails(), nil)
	f.scm.EXPECT().ListPRCommits(gomock.Any(), gomock.Any(), 42).Return(nil, nil)
	f.scm.EXPECT().GetPRDiff(gomock.Any(), gomock.Any(), 42).Return("", nil)
	f.scm.EXPECT().GetBranch(gomock.Any(), gomock.Any(), "v1").Return(nil)
	f.runner.EXPECT().PerformBackport(gomock.Any(), gomock.Any()).Return(successfulOutcome(), nil)
	f.scm.EXPECT().CreatePR(gomock.Any(), gomock.Any(), gomock.Any()).Return(77, nil)
	f.scm.EXPECT().CreateIssueComment(gomock.Any(), gomock.Any(), 42, gomock.Any()).Return(nil)

	require.NoError(t, f.wf.Run(ctx, job))

	final, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
}
