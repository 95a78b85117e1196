package service

import (
	"context"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
)

// UnsupportedBackportRunner is the default BackportRunner used when no
// sandboxed git environment is wired in. Every request comes back as a
// business failure telling the requester to backport by hand, so the rest
// of the pipeline (job record, comments, dashboard) behaves fully.
type UnsupportedBackportRunner struct{}

var _ core.BackportRunner = (*UnsupportedBackportRunner)(nil)

// PerformBackport implements core.BackportRunner.
func (UnsupportedBackportRunner) PerformBackport(ctx context.Context, req core.BackportRequest) (*model.BackportOutcome, error) {
	return &model.BackportOutcome{
		Success: false,
		Error:   "automated backport execution is not configured on this deployment; please backport manually",
	}, nil
}
