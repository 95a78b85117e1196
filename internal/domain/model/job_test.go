package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusFailed} {
		assert.True(t, s.Valid(), "status %q should be valid", s)
	}
	assert.False(t, JobStatus("running").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"pending to in_progress", JobStatusPending, JobStatusInProgress, true},
		{"pending to failed", JobStatusPending, JobStatusFailed, true},
		{"in_progress to completed", JobStatusInProgress, JobStatusCompleted, true},
		{"in_progress to failed", JobStatusInProgress, JobStatusFailed, true},
		{"in_progress back to pending", JobStatusInProgress, JobStatusPending, false},
		{"completed to failed", JobStatusCompleted, JobStatusFailed, false},
		{"failed to completed", JobStatusFailed, JobStatusCompleted, false},
		{"completed back to pending", JobStatusCompleted, JobStatusPending, false},
		{"same status", JobStatusInProgress, JobStatusInProgress, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCreateJobRequest_Validate(t *testing.T) {
	valid := func() *CreateJobRequest {
		return &CreateJobRequest{
			Repository:     "acme/widgets",
			InstallationID: 42,
			SourcePR:       7,
			TargetBranch:   "release-1.2",
			RequestedBy:    "octocat",
			CommentID:      1001,
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("bad repository", func(t *testing.T) {
		req := valid()
		req.Repository = "not-a-repo"
		require.Error(t, req.Validate())
	})

	t.Run("non-positive pr", func(t *testing.T) {
		req := valid()
		req.SourcePR = 0
		require.Error(t, req.Validate())
	})

	t.Run("blank target branch", func(t *testing.T) {
		req := valid()
		req.TargetBranch = "   "
		require.Error(t, req.Validate())
	})

	t.Run("missing requester", func(t *testing.T) {
		req := valid()
		req.RequestedBy = ""
		require.Error(t, req.Validate())
	})
}

func TestPRDetails_Validate(t *testing.T) {
	details := PRDetails{
		Number:     42,
		HeadSHA:    "abc123",
		BaseBranch: "main",
	}
	require.NoError(t, details.Validate())

	missingSHA := details
	missingSHA.HeadSHA = ""
	require.Error(t, missingSHA.Validate())

	badNumber := details
	badNumber.Number = 0
	require.Error(t, badNumber.Validate())
}

func TestJobUpdate_Empty(t *testing.T) {
	assert.True(t, JobUpdate{}.Empty())
	assert.False(t, JobUpdate{Status: StatusPtr(JobStatusFailed)}.Empty())
	assert.False(t, JobUpdate{Error: StringPtr("boom")}.Empty())
	assert.False(t, JobUpdate{ResultPR: IntPtr(9)}.Empty())
}
