// Package model defines the core data types used throughout the backport job system.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// JobStatus represents the current status of a backport job.
type JobStatus string

const (
	// JobStatusPending indicates a job is waiting to be picked up by a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusInProgress indicates a workflow run is driving the job.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusCompleted indicates the backport PR was opened successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job reached a terminal failure.
	JobStatusFailed JobStatus = "failed"
)

// ErrNoJobsAvailable is returned when no runnable jobs are available to claim.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusInProgress ||
		s == JobStatusCompleted || s == JobStatusFailed
}

// Terminal returns true if the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition. Status is monotonic: never back to pending, never between
// the terminal states.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusInProgress || next.Terminal()
	case JobStatusInProgress:
		return next.Terminal()
	default:
		return false
	}
}

// LogEntry is one timestamped line in a job's append-only log.
type LogEntry struct {
	Message   string    `json:"message"    db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Job represents one backport attempt and its externally visible outcome.
type Job struct {
	ID             string     `json:"id"                  db:"id"`
	Repository     string     `json:"repository"          db:"repository"`
	InstallationID int64      `json:"installation_id"     db:"installation_id"`
	SourcePR       int        `json:"source_pr"           db:"source_pr"`
	TargetBranch   string     `json:"target_branch"       db:"target_branch"`
	RequestedBy    string     `json:"requested_by"        db:"requested_by"`
	CommentID      int64      `json:"comment_id"          db:"comment_id"`
	Status         JobStatus  `json:"status"              db:"status"`
	ResultPR       *int       `json:"result_pr,omitempty" db:"result_pr"`
	Error          *string    `json:"error,omitempty"     db:"error"`
	CreatedAt      time.Time  `json:"created_at"          db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"          db:"updated_at"`
	Logs           []LogEntry `json:"logs"`
}

var repositoryPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// CreateJobRequest represents a request to create a new backport job.
type CreateJobRequest struct {
	Repository     string `json:"repository"`
	InstallationID int64  `json:"installation_id"`
	SourcePR       int    `json:"source_pr"`
	TargetBranch   string `json:"target_branch"`
	RequestedBy    string `json:"requested_by"`
	CommentID      int64  `json:"comment_id"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if !repositoryPattern.MatchString(r.Repository) {
		return fmt.Errorf("repository must be owner/name, got %q", r.Repository)
	}
	if r.SourcePR <= 0 {
		return errors.New("source PR number must be positive")
	}
	if strings.TrimSpace(r.TargetBranch) == "" {
		return errors.New("target branch is required")
	}
	if r.RequestedBy == "" {
		return errors.New("requested_by is required")
	}
	return nil
}

// JobUpdate carries a partial update for a job record. Nil fields are left
// untouched. ID and CreatedAt are not representable here and therefore
// immutable by construction.
type JobUpdate struct {
	Status   *JobStatus `json:"status,omitempty"`
	ResultPR *int       `json:"result_pr,omitempty"`
	Error    *string    `json:"error,omitempty"`
}

// Empty returns true if the update mutates nothing.
func (u JobUpdate) Empty() bool {
	return u.Status == nil && u.ResultPR == nil && u.Error == nil
}

// JobFilter selects jobs for listing. Zero-valued fields match everything;
// set fields are conjunctive exact matches.
type JobFilter struct {
	Repository string
	Status     JobStatus
	Limit      int
}

// StatusPtr is a convenience helper for building JobUpdate values.
func StatusPtr(s JobStatus) *JobStatus { return &s }

// IntPtr is a convenience helper for building JobUpdate values.
func IntPtr(v int) *int { return &v }

// StringPtr is a convenience helper for building JobUpdate values.
func StringPtr(v string) *string { return &v }
