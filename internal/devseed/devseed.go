// Package devseed populates a development database with sample backport
// jobs so the query API and dashboardless listing have something to show.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
)

// Run seeds sample jobs into an empty development store. A store that
// already has jobs is left untouched so reseeding on every restart does
// not pile up duplicates.
func Run(ctx context.Context, jobs core.JobStore, logger *slog.Logger) error {
	existing, err := jobs.ListJobs(ctx, model.JobFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("check existing jobs: %w", err)
	}
	if len(existing) > 0 {
		if logger != nil {
			logger.InfoContext(ctx, "dev seed skipped, jobs already present")
		}
		return nil
	}

	seeds := []model.CreateJobRequest{
		{
			Repository:     "acme/widgets",
			InstallationID: 1001,
			SourcePR:       101,
			TargetBranch:   "release/v1",
			RequestedBy:    "octocat",
			CommentID:      900101,
		},
		{
			Repository:     "acme/widgets",
			InstallationID: 1001,
			SourcePR:       102,
			TargetBranch:   "release/v2",
			RequestedBy:    "hubot",
			CommentID:      900102,
		},
		{
			Repository:     "acme/gadgets",
			InstallationID: 1002,
			SourcePR:       7,
			TargetBranch:   "stable",
			RequestedBy:    "octocat",
			CommentID:      900103,
		},
	}

	failures := 0
	for _, req := range seeds {
		job, createErr := jobs.CreateJob(ctx, &req)
		if createErr != nil {
			failures++
			if logger != nil {
				logger.WarnContext(ctx, "failed to seed job",
					"repository", req.Repository, "source_pr", req.SourcePR, "error", createErr)
			}
			continue
		}
		if logErr := jobs.AppendLog(ctx, job.ID, "seeded for development"); logErr != nil && logger != nil {
			logger.WarnContext(ctx, "failed to append seed log", "job_id", job.ID, "error", logErr)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded job",
				"job_id", job.ID, "repository", job.Repository, "source_pr", job.SourcePR)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}
