package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	apperrors "github.com/target/backport-bot/internal/errors"
)

// ErrNotACommand is returned when a comment does not carry a backport
// command. Callers treat it as "ignore", not as a failure.
var ErrNotACommand = errors.New("comment is not a backport command")

// ErrDuplicateTrigger is returned when the same comment already produced a
// job within the dedup window.
var ErrDuplicateTrigger = errors.New("comment already triggered a job")

// commandPattern matches "backport to <branch>" anywhere in a comment
// body, one command per comment.
var commandPattern = regexp.MustCompile(`(?m)^\s*backport to ([^\s]+)\s*$`)

const defaultDedupTTL = 24 * time.Hour

// JMESPath expressions locating the fields this service needs in a
// comment-event payload. Defaults match the GitHub issue_comment webhook
// shape; override for other hosts.
type TriggerExtractors struct {
	Repository     string
	InstallationID string
	CommentID      string
	CommentBody    string
	CommentAuthor  string
	IssueNumber    string
	IsPullRequest  string
}

// DefaultTriggerExtractors returns extractors for the GitHub
// issue_comment event payload.
func DefaultTriggerExtractors() TriggerExtractors {
	return TriggerExtractors{
		Repository:     "repository.full_name",
		InstallationID: "installation.id",
		CommentID:      "comment.id",
		CommentBody:    "comment.body",
		CommentAuthor:  "comment.user.login",
		IssueNumber:    "issue.number",
		IsPullRequest:  "issue.pull_request != null",
	}
}

// TriggerServiceOptions groups dependencies for TriggerService.
type TriggerServiceOptions struct {
	Store      core.JobStore   // Required: job record store
	Dedup      core.DedupGuard // Required: once-only guard per comment
	Extractors TriggerExtractors
	DedupTTL   time.Duration
	Logger     *slog.Logger // Optional
}

// TriggerService turns inbound comment events into backport jobs. The
// webhook transport is external; this service owns payload extraction,
// command parsing, dedup, and job creation.
type TriggerService struct {
	store    core.JobStore
	dedup    core.DedupGuard
	paths    compiledExtractors
	dedupTTL time.Duration
	logger   *slog.Logger
}

// compiledExtractors holds validated JMESPath expressions.
type compiledExtractors struct {
	repository     string
	installationID string
	commentID      string
	commentBody    string
	commentAuthor  string
	issueNumber    string
	isPullRequest  string
}

// NewTriggerService constructs a TriggerService.
func NewTriggerService(opts TriggerServiceOptions) (*TriggerService, error) {
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Dedup == nil {
		return nil, errors.New("dedup guard is required")
	}

	ex := opts.Extractors
	if ex == (TriggerExtractors{}) {
		ex = DefaultTriggerExtractors()
	}

	paths, err := compileExtractors(ex)
	if err != nil {
		return nil, err
	}

	ttl := opts.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}

	return &TriggerService{
		store:    opts.Store,
		dedup:    opts.Dedup,
		paths:    paths,
		dedupTTL: ttl,
		logger:   opts.Logger,
	}, nil
}

func compileExtractors(ex TriggerExtractors) (compiledExtractors, error) {
	exprs := []string{
		ex.Repository, ex.InstallationID, ex.CommentID, ex.CommentBody,
		ex.CommentAuthor, ex.IssueNumber, ex.IsPullRequest,
	}
	for _, expr := range exprs {
		if _, err := jmespath.Compile(expr); err != nil {
			return compiledExtractors{}, fmt.Errorf("compile extractor %q: %w", expr, err)
		}
	}
	return compiledExtractors{
		repository:     ex.Repository,
		installationID: ex.InstallationID,
		commentID:      ex.CommentID,
		commentBody:    ex.CommentBody,
		commentAuthor:  ex.CommentAuthor,
		issueNumber:    ex.IssueNumber,
		isPullRequest:  ex.IsPullRequest,
	}, nil
}

// ParseCommand extracts the target branch from a "backport to <branch>"
// command line. Returns ErrNotACommand when the body carries none.
func ParseCommand(body string) (string, error) {
	m := commandPattern.FindStringSubmatch(body)
	if m == nil {
		return "", ErrNotACommand
	}
	return m[1], nil
}

// HandleCommentEvent processes one decoded comment-event payload. Comments
// without a command and comments on plain issues return ErrNotACommand;
// replays of an already-processed comment return ErrDuplicateTrigger.
func (s *TriggerService) HandleCommentEvent(ctx context.Context, payload any) (*model.Job, error) {
	event, err := s.extract(payload)
	if err != nil {
		return nil, err
	}

	if !event.isPullRequest {
		return nil, ErrNotACommand
	}

	branch, err := ParseCommand(event.commentBody)
	if err != nil {
		return nil, err
	}

	dedupKey := event.repository + ":" + strconv.FormatInt(event.commentID, 10)
	acquired, err := s.dedup.Acquire(ctx, dedupKey, s.dedupTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire trigger dedup key: %w", err)
	}
	if !acquired {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "duplicate trigger comment ignored",
				"repository", event.repository,
				"comment_id", event.commentID,
			)
		}
		return nil, ErrDuplicateTrigger
	}

	job, err := s.store.CreateJob(ctx, &model.CreateJobRequest{
		Repository:     event.repository,
		InstallationID: event.installationID,
		SourcePR:       event.issueNumber,
		TargetBranch:   branch,
		RequestedBy:    event.commentAuthor,
		CommentID:      event.commentID,
	})
	if err != nil {
		return nil, fmt.Errorf("create backport job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "backport job created from comment",
			"job_id", job.ID,
			"repository", job.Repository,
			"source_pr", job.SourcePR,
			"target_branch", job.TargetBranch,
		)
	}

	return job, nil
}

type commentEvent struct {
	repository     string
	installationID int64
	commentID      int64
	commentBody    string
	commentAuthor  string
	issueNumber    int
	isPullRequest  bool
}

func (s *TriggerService) extract(payload any) (*commentEvent, error) {
	event := &commentEvent{}

	var err error
	if event.repository, err = searchString(s.paths.repository, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing repository")
	}
	if event.installationID, err = searchInt64(s.paths.installationID, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing installation id")
	}
	if event.commentID, err = searchInt64(s.paths.commentID, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing comment id")
	}
	if event.commentBody, err = searchString(s.paths.commentBody, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing comment body")
	}
	if event.commentAuthor, err = searchString(s.paths.commentAuthor, payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing comment author")
	}

	issueNumber, err := searchInt64(s.paths.issueNumber, payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "payload missing issue number")
	}
	event.issueNumber = int(issueNumber)

	isPR, err := jmespath.Search(s.paths.isPullRequest, payload)
	if err == nil {
		b, ok := isPR.(bool)
		event.isPullRequest = ok && b
	}

	return event, nil
}

func searchString(expr string, payload any) (string, error) {
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("value absent or not a string")
	}
	return s, nil
}

func searchInt64(expr string, payload any) (int64, error) {
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, errors.New("value absent or not a number")
	}
}
