package scm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/workflow"
)

func newTestClient(t *testing.T, handler http.Handler) (*GitHubClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(GitHubClientOptions{
		BaseURL: srv.URL,
		Tokens:  NewStaticTokenProvider("test-token"),
	})
	require.NoError(t, err)
	return client, srv
}

func testCall() core.SCMCall {
	return core.SCMCall{InstallationID: 1001, Repository: "acme/widgets"}
}

func TestGetPR(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/42", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"number":           42,
			"title":            "Fix widget cache",
			"body":             "Fixes stale cache.",
			"merged":           true,
			"merge_commit_sha": "abc1234",
			"base":             map[string]any{"ref": "main"},
			"head":             map[string]any{"ref": "fix/widget-cache", "sha": "feedc0de"},
		})
	}))

	pr, err := client.GetPR(context.Background(), testCall(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "Fix widget cache", pr.Title)
	assert.True(t, pr.Merged)
	assert.Equal(t, "abc1234", pr.MergeCommitSHA)
	assert.Equal(t, "main", pr.BaseBranch)
	assert.Equal(t, "feedc0de", pr.HeadSHA)
}

func TestListPRCommits(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/42/commits", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"sha": "c0ffee1", "commit": map[string]any{"message": "first"}},
			{"sha": "c0ffee2", "commit": map[string]any{"message": "second"}},
		})
	}))

	commits, err := client.ListPRCommits(context.Background(), testCall(), 42)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "c0ffee1", commits[0].SHA)
	assert.Equal(t, "second", commits[1].Message)
}

func TestGetPRDiff(t *testing.T) {
	const diff = "diff --git a/a.go b/a.go\n+added\n"
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github.v3.diff", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(diff))
	}))

	got, err := client.GetPRDiff(context.Background(), testCall(), 42)
	require.NoError(t, err)
	assert.Equal(t, diff, got)
}

func TestGetBranchMissingIsFatal(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/widgets/branches/v1" {
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "v1"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Branch not found"})
	}))

	require.NoError(t, client.GetBranch(context.Background(), testCall(), "v1"))

	err := client.GetBranch(context.Background(), testCall(), "release-1.2")
	require.Error(t, err)
	assert.True(t, workflow.IsFatal(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Branch not found")
}

func TestCreatePR(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "backport/42-to-v1", body["head"])
		assert.Equal(t, "v1", body["base"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"number": 77})
	}))

	num, err := client.CreatePR(context.Background(), testCall(), core.CreatePRRequest{
		Title: "[Backport v1] Fix widget cache",
		Head:  "backport/42-to-v1",
		Base:  "v1",
		Body:  "Backport of #42.",
	})
	require.NoError(t, err)
	assert.Equal(t, 77, num)
}

func TestServerErrorsAreTransient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.GetBranch(context.Background(), testCall(), "v1")
	require.Error(t, err)
	assert.False(t, workflow.IsFatal(err))
	assert.True(t, workflow.IsTransient(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{name: "not found", err: &APIError{StatusCode: 404}, fatal: true},
		{name: "forbidden", err: &APIError{StatusCode: 403}, fatal: true},
		{name: "unprocessable", err: &APIError{StatusCode: 422}, fatal: true},
		{name: "rate limited", err: &APIError{StatusCode: 429}, fatal: false},
		{name: "server error", err: &APIError{StatusCode: 500}, fatal: false},
		{name: "bad gateway", err: &APIError{StatusCode: 502}, fatal: false},
		{name: "plain network-ish error", err: errors.New("connection reset"), fatal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			assert.Equal(t, tt.fatal, workflow.IsFatal(classified))
		})
	}

	assert.NoError(t, ClassifyError(nil))
}

func TestReactAndComment(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))

	ctx := context.Background()
	require.NoError(t, client.ReactToComment(ctx, testCall(), 900100, "+1"))
	require.NoError(t, client.CreateIssueComment(ctx, testCall(), 42, "Backport queued."))

	assert.Equal(t, []string{
		"/repos/acme/widgets/issues/comments/900100/reactions",
		"/repos/acme/widgets/issues/42/comments",
	}, paths)
}
