// Package scm implements the source-control hosting collaborator over the
// GitHub REST API.
package scm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
)

const (
	defaultBaseURL     = "https://api.github.com"
	defaultCallTimeout = 15 * time.Second

	// maxDiffBytes caps how much of a PR diff is read; anything larger is
	// far past the analysis thresholds anyway.
	maxDiffBytes = 4 << 20
)

// TokenProvider yields an access token scoped to one app installation.
type TokenProvider interface {
	Token(ctx context.Context, installationID int64) (string, error)
}

// StaticTokenProvider serves every installation from a single token via an
// oauth2 static source. Suitable for personal access tokens and tests.
type StaticTokenProvider struct {
	source oauth2.TokenSource
}

// NewStaticTokenProvider creates a provider around a fixed token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{
		source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	}
}

// Token implements TokenProvider.
func (p *StaticTokenProvider) Token(ctx context.Context, installationID int64) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("resolve access token: %w", err)
	}
	return tok.AccessToken, nil
}

// GitHubClientOptions groups dependencies for NewGitHubClient.
type GitHubClientOptions struct {
	// BaseURL overrides the API host, used for GitHub Enterprise and tests.
	BaseURL string
	Tokens  TokenProvider
	Client  *http.Client
	// CallTimeout bounds each individual API call.
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// GitHubClient is a thin REST client implementing core.SCMClient. It
// carries a per-call timeout and no retry loop; retrying is the workflow
// engine's job.
type GitHubClient struct {
	baseURL     string
	tokens      TokenProvider
	client      *http.Client
	callTimeout time.Duration
	logger      *slog.Logger
}

var _ core.SCMClient = (*GitHubClient)(nil)

// NewGitHubClient creates a GitHub API client.
func NewGitHubClient(opts GitHubClientOptions) (*GitHubClient, error) {
	if opts.Tokens == nil {
		return nil, errors.New("token provider is required")
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &GitHubClient{
		baseURL:     baseURL,
		tokens:      opts.Tokens,
		client:      hc,
		callTimeout: timeout,
		logger:      opts.Logger,
	}, nil
}

// ReactToComment adds an emoji reaction to an issue comment.
func (c *GitHubClient) ReactToComment(ctx context.Context, call core.SCMCall, commentID int64, reaction string) error {
	path := fmt.Sprintf("/repos/%s/issues/comments/%d/reactions", call.Repository, commentID)
	return c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodPost,
		path:   path,
		body:   map[string]string{"content": reaction},
	}, nil)
}

type prResponse struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Merged         bool   `json:"merged"`
	MergeCommitSHA string `json:"merge_commit_sha"`
	Base           struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
}

// GetPR fetches pull request metadata. Commits and diff are fetched
// separately via ListPRCommits and GetPRDiff.
func (c *GitHubClient) GetPR(ctx context.Context, call core.SCMCall, prNumber int) (*model.PRDetails, error) {
	var resp prResponse
	err := c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodGet,
		path:   fmt.Sprintf("/repos/%s/pulls/%d", call.Repository, prNumber),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &model.PRDetails{
		Number:         resp.Number,
		Title:          resp.Title,
		Body:           resp.Body,
		BaseBranch:     resp.Base.Ref,
		HeadBranch:     resp.Head.Ref,
		HeadSHA:        resp.Head.SHA,
		Merged:         resp.Merged,
		MergeCommitSHA: resp.MergeCommitSHA,
	}, nil
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// ListPRCommits returns the commits on a pull request in order.
func (c *GitHubClient) ListPRCommits(ctx context.Context, call core.SCMCall, prNumber int) ([]model.Commit, error) {
	var resp []commitResponse
	err := c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodGet,
		path:   fmt.Sprintf("/repos/%s/pulls/%d/commits", call.Repository, prNumber),
	}, &resp)
	if err != nil {
		return nil, err
	}

	commits := make([]model.Commit, len(resp))
	for i, item := range resp {
		commits[i] = model.Commit{SHA: item.SHA, Message: item.Commit.Message}
	}
	return commits, nil
}

// GetPRDiff fetches the unified diff for a pull request.
func (c *GitHubClient) GetPRDiff(ctx context.Context, call core.SCMCall, prNumber int) (string, error) {
	var diff string
	err := c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodGet,
		path:   fmt.Sprintf("/repos/%s/pulls/%d", call.Repository, prNumber),
		accept: "application/vnd.github.v3.diff",
		raw: func(r io.Reader) error {
			data, readErr := io.ReadAll(io.LimitReader(r, maxDiffBytes))
			if readErr != nil {
				return fmt.Errorf("read diff body: %w", readErr)
			}
			diff = string(data)
			return nil
		},
	}, nil)
	if err != nil {
		return "", err
	}
	return diff, nil
}

// GetBranch checks that a branch exists; a missing branch surfaces as a
// fatal 404.
func (c *GitHubClient) GetBranch(ctx context.Context, call core.SCMCall, branch string) error {
	return c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodGet,
		path:   fmt.Sprintf("/repos/%s/branches/%s", call.Repository, branch),
	}, nil)
}

// CreatePR opens a pull request and returns its number.
func (c *GitHubClient) CreatePR(ctx context.Context, call core.SCMCall, req core.CreatePRRequest) (int, error) {
	var resp struct {
		Number int `json:"number"`
	}
	err := c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodPost,
		path:   fmt.Sprintf("/repos/%s/pulls", call.Repository),
		body: map[string]string{
			"title": req.Title,
			"head":  req.Head,
			"base":  req.Base,
			"body":  req.Body,
		},
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Number, nil
}

// CreateIssueComment posts a comment on an issue or pull request.
func (c *GitHubClient) CreateIssueComment(ctx context.Context, call core.SCMCall, issueNumber int, body string) error {
	return c.do(ctx, apiRequest{
		call:   call,
		method: http.MethodPost,
		path:   fmt.Sprintf("/repos/%s/issues/%d/comments", call.Repository, issueNumber),
		body:   map[string]string{"body": body},
	}, nil)
}

// apiRequest describes one REST call.
type apiRequest struct {
	call   core.SCMCall
	method string
	path   string
	accept string
	body   any
	// raw consumes the response body instead of JSON decoding, used for
	// diff media types.
	raw func(io.Reader) error
}

func (c *GitHubClient) do(ctx context.Context, req apiRequest, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	token, err := c.tokens.Token(ctx, req.call.InstallationID)
	if err != nil {
		return ClassifyError(err)
	}

	var payload io.Reader
	if req.body != nil {
		encoded, encErr := json.Marshal(req.body)
		if encErr != nil {
			return fmt.Errorf("encode request body: %w", encErr)
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	} else {
		httpReq.Header.Set("Accept", "application/vnd.github+json")
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ClassifyError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if c.logger != nil {
		c.logger.DebugContext(ctx, "scm api call",
			"method", req.method,
			"path", req.path,
			"status", resp.StatusCode,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ClassifyError(&APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		})
	}

	if req.raw != nil {
		if rawErr := req.raw(resp.Body); rawErr != nil {
			return ClassifyError(rawErr)
		}
		return nil
	}
	if out == nil {
		// Drain so the connection is reusable.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if decErr := json.NewDecoder(resp.Body).Decode(out); decErr != nil {
		return ClassifyError(fmt.Errorf("decode response for %s: %w", req.path, decErr))
	}
	return nil
}

// readErrorMessage extracts the "message" field GitHub puts in error
// bodies, best effort.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}
