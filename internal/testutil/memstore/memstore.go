// Package memstore provides in-memory JobStore and StepStore fakes for
// tests. They honor the store contracts (atomic record writes, append-only
// logs, monotonic status, newest-first listing) without requiring Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	apperrors "github.com/target/backport-bot/internal/errors"
)

type jobRecord struct {
	job   model.Job
	seq   int64
	claim time.Time
}

// JobStore is an in-memory implementation of core.JobStore and
// core.JobClaimer.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*jobRecord
	seq  int64
	now  func() time.Time
}

var (
	_ core.JobStore   = (*JobStore)(nil)
	_ core.JobClaimer = (*JobStore)(nil)
)

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*jobRecord),
		now:  time.Now,
	}
}

// SetNowFunc overrides the clock, useful for deterministic timestamps.
func (s *JobStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// CreateJob implements core.JobStore.
func (s *JobStore) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create job request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	job := model.Job{
		ID:             uuid.NewString(),
		Repository:     req.Repository,
		InstallationID: req.InstallationID,
		SourcePR:       req.SourcePR,
		TargetBranch:   req.TargetBranch,
		RequestedBy:    req.RequestedBy,
		CommentID:      req.CommentID,
		Status:         model.JobStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		Logs:           []model.LogEntry{},
	}
	s.jobs[job.ID] = &jobRecord{job: job, seq: s.seq}

	out := cloneJob(job)
	return &out, nil
}

// GetJob implements core.JobStore.
func (s *JobStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	out := cloneJob(rec.job)
	return &out, nil
}

// UpdateJob implements core.JobStore.
func (s *JobStore) UpdateJob(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, apperrors.Validationf("invalid status %q", *upd.Status)
		}
		if !rec.job.Status.CanTransitionTo(*upd.Status) {
			return nil, apperrors.Conflict("job status cannot move backward")
		}
		rec.job.Status = *upd.Status
	}
	if upd.ResultPR != nil {
		rec.job.ResultPR = intPtr(*upd.ResultPR)
	}
	if upd.Error != nil {
		rec.job.Error = strPtr(*upd.Error)
	}
	rec.job.UpdatedAt = s.now()

	out := cloneJob(rec.job)
	return &out, nil
}

// AppendLog implements core.JobStore.
func (s *JobStore) AppendLog(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFoundf("job %s not found", id)
	}
	rec.job.Logs = append(rec.job.Logs, model.LogEntry{Message: message, CreatedAt: s.now()})
	rec.job.UpdatedAt = s.now()
	return nil
}

// ListJobs implements core.JobStore.
func (s *JobStore) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]*jobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if filter.Repository != "" && rec.job.Repository != filter.Repository {
			continue
		}
		if filter.Status != "" && rec.job.Status != filter.Status {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].job.CreatedAt.Equal(recs[j].job.CreatedAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].job.CreatedAt.After(recs[j].job.CreatedAt)
	})

	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}

	out := make([]*model.Job, len(recs))
	for i, rec := range recs {
		job := cloneJob(rec.job)
		out[i] = &job
	}
	return out, nil
}

// ClaimNext implements core.JobClaimer: oldest runnable job first, where
// runnable means pending or in_progress with an expired claim lease.
func (s *JobStore) ClaimNext(ctx context.Context, lease time.Duration) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var candidate *jobRecord
	for _, rec := range s.jobs {
		runnable := rec.job.Status == model.JobStatusPending ||
			(rec.job.Status == model.JobStatusInProgress && rec.claim.Before(now))
		if !runnable {
			continue
		}
		if candidate == nil || rec.seq < candidate.seq {
			candidate = rec
		}
	}
	if candidate == nil {
		return nil, model.ErrNoJobsAvailable
	}

	candidate.job.Status = model.JobStatusInProgress
	candidate.job.UpdatedAt = now
	candidate.claim = now.Add(lease)

	out := cloneJob(candidate.job)
	return &out, nil
}

// ExtendClaim implements core.JobClaimer.
func (s *JobStore) ExtendClaim(ctx context.Context, id string, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok || rec.job.Status != model.JobStatusInProgress {
		return apperrors.NotFoundf("job %s is not claimable", id)
	}
	rec.claim = s.now().Add(lease)
	return nil
}

func cloneJob(job model.Job) model.Job {
	out := job
	if job.ResultPR != nil {
		out.ResultPR = intPtr(*job.ResultPR)
	}
	if job.Error != nil {
		out.Error = strPtr(*job.Error)
	}
	out.Logs = append([]model.LogEntry(nil), job.Logs...)
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// StepStore is an in-memory implementation of core.StepStore.
type StepStore struct {
	mu      sync.Mutex
	results map[string]core.StepResult
}

var _ core.StepStore = (*StepStore)(nil)

// NewStepStore creates an empty in-memory step store.
func NewStepStore() *StepStore {
	return &StepStore{results: make(map[string]core.StepResult)}
}

// GetResult implements core.StepStore.
func (s *StepStore) GetResult(ctx context.Context, runID, stepName string) (*core.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.results[runID+"/"+stepName]
	if !ok {
		return nil, apperrors.NotFoundf("no recorded result for step %s/%s", runID, stepName)
	}
	out := res
	out.Value = append([]byte(nil), res.Value...)
	return &out, nil
}

// PutResult implements core.StepStore.
func (s *StepStore) PutResult(ctx context.Context, runID, stepName string, res core.StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := runID + "/" + stepName
	if _, ok := s.results[key]; ok {
		return apperrors.Conflict("step result already recorded")
	}
	res.Value = append([]byte(nil), res.Value...)
	s.results[key] = res
	return nil
}

// Recorded returns how many results are recorded for a run, a convenience
// for replay assertions.
func (s *StepStore) Recorded(runID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.results {
		if len(key) > len(runID) && key[:len(runID)] == runID && key[len(runID)] == '/' {
			n++
		}
	}
	return n
}
