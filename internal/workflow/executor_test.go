package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/backport-bot/internal/testutil/memstore"
	"github.com/target/backport-bot/internal/workflow"
)

func TestExecutorRunsStepOnce(t *testing.T) {
	store := memstore.NewStepStore()
	ex := workflow.NewExecutor(store, nil)

	calls := 0
	fn := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`"done"`), nil
	}

	out, err := ex.Execute(context.Background(), "run-1", "acknowledge", fn)
	require.NoError(t, err)
	assert.Equal(t, []byte(`"done"`), out)
	assert.Equal(t, 1, calls)

	// Replay returns the recorded value without re-invoking the function.
	out, err = ex.Execute(context.Background(), "run-1", "acknowledge", fn)
	require.NoError(t, err)
	assert.Equal(t, []byte(`"done"`), out)
	assert.Equal(t, 1, calls)
}

func TestExecutorScopesResultsByRun(t *testing.T) {
	store := memstore.NewStepStore()
	ex := workflow.NewExecutor(store, nil)

	calls := 0
	fn := func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, nil
	}

	_, err := ex.Execute(context.Background(), "run-1", "acknowledge", fn)
	require.NoError(t, err)
	_, err = ex.Execute(context.Background(), "run-2", "acknowledge", fn)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestExecutorTransientFailureNotPersisted(t *testing.T) {
	store := memstore.NewStepStore()
	ex := workflow.NewExecutor(store, nil)

	calls := 0
	fn := func(ctx context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("bad gateway")
		}
		return []byte(`7`), nil
	}

	_, err := ex.Execute(context.Background(), "run-1", "fetch_pr_details", fn)
	require.Error(t, err)
	assert.Equal(t, 0, store.Recorded("run-1"))

	// A second invocation for the same key runs the function again.
	out, err := ex.Execute(context.Background(), "run-1", "fetch_pr_details", fn)
	require.NoError(t, err)
	assert.Equal(t, []byte(`7`), out)
	assert.Equal(t, 2, calls)
}

func TestExecutorFatalFailurePersistedAndReplayed(t *testing.T) {
	store := memstore.NewStepStore()
	ex := workflow.NewExecutor(store, nil)

	calls := 0
	fn := func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, workflow.Fatalf("branch %q does not exist", "release-1.2")
	}

	_, err := ex.Execute(context.Background(), "run-1", "validate_target_branch", fn)
	require.Error(t, err)
	assert.True(t, workflow.IsFatal(err))
	assert.Equal(t, 1, store.Recorded("run-1"))

	// Replay re-raises the recorded failure without re-running the step.
	_, err = ex.Execute(context.Background(), "run-1", "validate_target_branch", fn)
	require.Error(t, err)
	assert.True(t, workflow.IsFatal(err))
	assert.Contains(t, err.Error(), "release-1.2")
	assert.Equal(t, 1, calls)
}

func TestRunDecodesTypedResults(t *testing.T) {
	type branchInfo struct {
		Name string `json:"name"`
		SHA  string `json:"sha"`
	}

	store := memstore.NewStepStore()
	ex := workflow.NewExecutor(store, nil)

	calls := 0
	fn := func(ctx context.Context) (branchInfo, error) {
		calls++
		return branchInfo{Name: "v1", SHA: "abc123"}, nil
	}

	got, err := workflow.Run(context.Background(), ex, "run-1", "validate_target_branch", fn)
	require.NoError(t, err)
	assert.Equal(t, branchInfo{Name: "v1", SHA: "abc123"}, got)

	// Replay reconstructs the value from the recorded JSON.
	got, err = workflow.Run(context.Background(), ex, "run-1", "validate_target_branch", fn)
	require.NoError(t, err)
	assert.Equal(t, branchInfo{Name: "v1", SHA: "abc123"}, got)
	assert.Equal(t, 1, calls)
}

func TestFatalAndTransientClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, workflow.IsFatal(workflow.Fatal(base)))
	assert.False(t, workflow.IsTransient(workflow.Fatal(base)))

	assert.True(t, workflow.IsTransient(workflow.Transient(base)))
	assert.True(t, workflow.IsTransient(base))
	assert.False(t, workflow.IsFatal(base))

	// Wrapped classifications survive fmt.Errorf chains.
	wrapped := errors.New("outer")
	assert.False(t, workflow.IsFatal(wrapped))
	assert.True(t, workflow.IsFatal(workflow.Fatal(wrapped)))

	assert.Nil(t, workflow.Fatal(nil))
	assert.Nil(t, workflow.Transient(nil))
	assert.False(t, workflow.IsTransient(nil))
}
