package testutil

import (
	"github.com/target/backport-bot/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building
// CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Repository:     "acme/widgets",
			InstallationID: 1001,
			SourcePR:       42,
			TargetBranch:   "v1",
			RequestedBy:    "octocat",
			CommentID:      900100,
		},
	}
}

// WithRepository sets the repository.
func (b *JobRequestBuilder) WithRepository(repo string) *JobRequestBuilder {
	b.req.Repository = repo
	return b
}

// WithSourcePR sets the source pull request number.
func (b *JobRequestBuilder) WithSourcePR(pr int) *JobRequestBuilder {
	b.req.SourcePR = pr
	return b
}

// WithTargetBranch sets the backport target branch.
func (b *JobRequestBuilder) WithTargetBranch(branch string) *JobRequestBuilder {
	b.req.TargetBranch = branch
	return b
}

// WithRequestedBy sets the requesting user.
func (b *JobRequestBuilder) WithRequestedBy(user string) *JobRequestBuilder {
	b.req.RequestedBy = user
	return b
}

// WithCommentID sets the triggering comment id.
func (b *JobRequestBuilder) WithCommentID(id int64) *JobRequestBuilder {
	b.req.CommentID = id
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	out := *b.req
	return &out
}

// MergedPRDetails returns PR details for a merged pull request with a
// small two-commit change set, the common fixture for workflow tests.
func MergedPRDetails() *model.PRDetails {
	return &model.PRDetails{
		Number:         42,
		Title:          "Fix widget cache invalidation",
		Body:           "Fixes a stale cache on widget update.",
		BaseBranch:     "main",
		HeadBranch:     "fix/widget-cache",
		HeadSHA:        "feedc0de",
		Merged:         true,
		MergeCommitSHA: "abc1234",
		Commits: []model.Commit{
			{SHA: "c0ffee1", Message: "invalidate cache on update"},
			{SHA: "c0ffee2", Message: "add regression test"},
		},
		Diff: "diff --git a/cache.go b/cache.go\n--- a/cache.go\n+++ b/cache.go\n@@ -1,3 +1,4 @@\n+invalidate()\n",
	}
}
