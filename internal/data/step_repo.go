package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/target/backport-bot/internal/core"
	apperrors "github.com/target/backport-bot/internal/errors"
)

// StepRepo provides Postgres-backed storage for durable workflow step
// results. A (run_id, step_name) pair is written at most once; the primary
// key turns a duplicate write into a conflict the executor resolves by
// replaying the recorded result.
type StepRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.StepStore = (*StepRepo)(nil)

// NewStepRepo creates a step result repository.
func NewStepRepo(db *sql.DB, tp TimeProvider) *StepRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &StepRepo{DB: db, timeProvider: tp}
}

// GetResult returns the recorded result for a step, or a NotFound error
// when the step has not completed yet.
func (r *StepRepo) GetResult(ctx context.Context, runID, stepName string) (*core.StepResult, error) {
	if strings.TrimSpace(runID) == "" || strings.TrimSpace(stepName) == "" {
		return nil, apperrors.Validation("run id and step name are required")
	}

	var (
		res     core.StepResult
		value   []byte
		stepErr sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
      SELECT outcome, result, error
      FROM workflow_steps
      WHERE run_id = $1 AND step_name = $2
    `, runID, stepName).Scan(&res.Outcome, &value, &stepErr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("no recorded result for step %s/%s", runID, stepName)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("select step result: %w", err))
	}

	res.Value = value
	if stepErr.Valid {
		res.Error = stepErr.String
	}

	return &res, nil
}

// PutResult durably records a step outcome. Writing a key twice reports a
// conflict via the primary key rather than overwriting.
func (r *StepRepo) PutResult(ctx context.Context, runID, stepName string, res core.StepResult) error {
	if strings.TrimSpace(runID) == "" || strings.TrimSpace(stepName) == "" {
		return apperrors.Validation("run id and step name are required")
	}

	var stepErr *string
	if res.Error != "" {
		stepErr = &res.Error
	}

	_, err := r.DB.ExecContext(ctx, `
      INSERT INTO workflow_steps (run_id, step_name, outcome, result, error, created_at)
      VALUES ($1, $2, $3, $4, $5, $6)
    `, runID, stepName, string(res.Outcome), res.Value, stepErr, r.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("insert step result: %w", err))
	}

	return nil
}
