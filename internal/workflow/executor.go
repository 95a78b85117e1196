package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/backport-bot/internal/core"
	apperrors "github.com/target/backport-bot/internal/errors"
)

// Executor runs a single named unit of work exactly-once-semantically. On
// first execution for a (runID, stepName) key it invokes the step function
// and durably records the outcome; on replay it returns the recorded
// outcome without invoking the function again. Side effects are assumed
// non-idempotent and must never run twice for the same key.
type Executor struct {
	store  core.StepStore
	logger *slog.Logger
}

// NewExecutor creates a step executor backed by the given step store.
func NewExecutor(store core.StepStore, logger *slog.Logger) *Executor {
	return &Executor{store: store, logger: logger}
}

// Execute runs fn for (runID, stepName) unless a result is already
// recorded. Transient failures are returned without being persisted, so
// the engine can re-invoke Execute for the same key; fatal failures are
// recorded terminally and re-raised on replay.
func (e *Executor) Execute(
	ctx context.Context,
	runID, stepName string,
	fn func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	recorded, err := e.store.GetResult(ctx, runID, stepName)
	switch {
	case err == nil:
		return e.replay(ctx, runID, stepName, recorded)
	case !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("look up step %s/%s: %w", runID, stepName, err)
	}

	value, stepErr := fn(ctx)
	if stepErr != nil {
		if IsFatal(stepErr) {
			e.recordFailure(ctx, runID, stepName, stepErr)
		}
		return nil, stepErr
	}

	// The side effect already happened; canceling the run must not stop
	// the result from being recorded or a resume would repeat it.
	if putErr := e.store.PutResult(context.WithoutCancel(ctx), runID, stepName, core.StepResult{
		Outcome: core.StepCompleted,
		Value:   value,
	}); putErr != nil {
		if apperrors.IsConflict(putErr) {
			// Lost a race with a concurrent run of the same step; the
			// recorded result wins.
			return e.lookupRecorded(ctx, runID, stepName)
		}
		return nil, fmt.Errorf("record step %s/%s result: %w", runID, stepName, putErr)
	}

	return value, nil
}

func (e *Executor) replay(
	ctx context.Context,
	runID, stepName string,
	recorded *core.StepResult,
) ([]byte, error) {
	if e.logger != nil {
		e.logger.DebugContext(ctx, "replaying recorded step result",
			"run_id", runID,
			"step", stepName,
			"outcome", recorded.Outcome,
		)
	}
	if recorded.Outcome == core.StepFailed {
		return nil, Fatal(errors.New(recorded.Error))
	}
	return recorded.Value, nil
}

func (e *Executor) lookupRecorded(ctx context.Context, runID, stepName string) ([]byte, error) {
	recorded, err := e.store.GetResult(ctx, runID, stepName)
	if err != nil {
		return nil, fmt.Errorf("read back step %s/%s result: %w", runID, stepName, err)
	}
	return e.replay(ctx, runID, stepName, recorded)
}

// recordFailure persists a fatal step failure so replay re-raises it
// without re-running the side effect. Persisting is best effort: the
// fatal error is surfaced either way.
func (e *Executor) recordFailure(ctx context.Context, runID, stepName string, stepErr error) {
	putErr := e.store.PutResult(context.WithoutCancel(ctx), runID, stepName, core.StepResult{
		Outcome: core.StepFailed,
		Error:   stepErr.Error(),
	})
	if putErr != nil && !apperrors.IsConflict(putErr) && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to record fatal step failure",
			"run_id", runID,
			"step", stepName,
			"error", putErr,
		)
	}
}

// Run executes a typed step through the executor, serializing the step's
// return value as JSON for durable recording and decoding it on replay.
func Run[T any](
	ctx context.Context,
	ex *Executor,
	runID, stepName string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	raw, err := ex.Execute(ctx, runID, stepName, func(ctx context.Context) ([]byte, error) {
		value, stepErr := fn(ctx)
		if stepErr != nil {
			return nil, stepErr
		}
		encoded, encErr := json.Marshal(value)
		if encErr != nil {
			return nil, Fatal(fmt.Errorf("encode step %s result: %w", stepName, encErr))
		}
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if decErr := json.Unmarshal(raw, &out); decErr != nil {
		return zero, Fatal(fmt.Errorf("decode recorded result for step %s: %w", stepName, decErr))
	}
	return out, nil
}
