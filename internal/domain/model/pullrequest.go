package model

import (
	"errors"
	"strings"
)

// Complexity classifies how involved a change is, derived from diff size.
type Complexity string

const (
	// ComplexityLow is a small, likely clean backport.
	ComplexityLow Complexity = "low"
	// ComplexityMedium is a moderately sized change.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh is a large change that will likely need human review.
	ComplexityHigh Complexity = "high"
)

// Commit is one commit belonging to a pull request.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// PRDetails is the typed payload produced by the fetch step and consumed by
// the analysis and backport steps. Fields are validated at the step boundary
// rather than trusting the producer.
type PRDetails struct {
	Number         int      `json:"number"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	BaseBranch     string   `json:"base_branch"`
	HeadBranch     string   `json:"head_branch"`
	HeadSHA        string   `json:"head_sha"`
	Merged         bool     `json:"merged"`
	MergeCommitSHA string   `json:"merge_commit_sha,omitempty"`
	Commits        []Commit `json:"commits"`
	Diff           string   `json:"diff"`
}

// Validate checks the shape of PRDetails at the step boundary.
func (d *PRDetails) Validate() error {
	switch {
	case d.Number <= 0:
		return errors.New("pr number must be positive")
	case strings.TrimSpace(d.HeadSHA) == "":
		return errors.New("head sha is required")
	case strings.TrimSpace(d.BaseBranch) == "":
		return errors.New("base branch is required")
	}
	return nil
}

// ChangeAnalysis is the result of the change analysis step.
type ChangeAnalysis struct {
	Complexity   Complexity `json:"complexity"`
	FilesChanged int        `json:"files_changed"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
}

// BackportOutcome is the result of the backport execution step. A merge
// conflict is an expected business outcome, so failure is carried as a
// value rather than an error.
type BackportOutcome struct {
	Success bool   `json:"success"`
	Branch  string `json:"branch,omitempty"`
	Error   string `json:"error,omitempty"`
}
