package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/data/pgxutil"
	"github.com/target/backport-bot/internal/domain/model"
	apperrors "github.com/target/backport-bot/internal/errors"
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides Postgres-backed storage for backport job records. Job
// rows are written atomically; log lines live in a separate append-only
// table joined on read.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

var (
	_ core.JobStore   = (*JobRepo)(nil)
	_ core.JobClaimer = (*JobRepo)(nil)
)

// NewJobRepo creates a new JobRepo instance with the given database
// connection and configuration.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  repository,
  installation_id,
  source_pr,
  target_branch,
  requested_by,
  comment_id,
  status,
  result_pr,
  error,
  created_at,
  updated_at
`

// CreateJob inserts a new pending job and returns the stored record.
func (r *JobRepo) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create job request")
	}

	query := `
      INSERT INTO jobs(repository, installation_id, source_pr, target_branch, requested_by, comment_id, status)
      VALUES ($1, $2, $3, $4, $5, $6, 'pending')
      RETURNING ` + jobColumns

	row := r.DB.QueryRowContext(ctx, query,
		req.Repository,
		req.InstallationID,
		req.SourcePR,
		req.TargetBranch,
		req.RequestedBy,
		req.CommentID,
	)

	job, err := scanJobFromRow(row)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("insert job: %w", err))
	}

	job.Logs = []model.LogEntry{}
	return job, nil
}

// GetJob returns the job with the given id, logs included in append order.
func (r *JobRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("job id is required")
	}

	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id+" not found")
		}
		return nil, apperrors.MapDBError(fmt.Errorf("select job: %w", err))
	}

	logs, err := r.loadLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Logs = logs

	return job, nil
}

// UpdateJob applies a partial update in a single round trip. COALESCE keeps
// unset fields untouched; last writer wins per field group. Status updates
// only advance: a backward transition matches no row and reports a
// conflict.
func (r *JobRepo) UpdateJob(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("job id is required")
	}
	if upd.Empty() {
		return nil, apperrors.Validation("update mutates nothing")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperrors.Validationf("invalid status %q", *upd.Status)
	}

	query := `
      UPDATE jobs
      SET
        status = COALESCE($2, status),
        result_pr = COALESCE($3, result_pr),
        error = COALESCE($4, error),
        updated_at = $5
      WHERE id = $1
        AND ($2::text IS NULL OR array_position(ARRAY['pending','in_progress','completed','failed'], status)
             <= array_position(ARRAY['pending','in_progress','completed','failed'], $2::text))
        AND ($2::text IS NULL OR status NOT IN ('completed','failed') OR status = $2::text)
      RETURNING ` + jobColumns

	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}

	row := r.DB.QueryRowContext(ctx, query,
		id,
		status,
		upd.ResultPR,
		upd.Error,
		r.timeProvider.Now().UTC(),
	)

	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyUpdateMiss(ctx, id)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("update job: %w", err))
	}

	logs, err := r.loadLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Logs = logs

	return job, nil
}

// classifyUpdateMiss distinguishes a missing row from a rejected status
// transition after an UPDATE matched nothing.
func (r *JobRepo) classifyUpdateMiss(ctx context.Context, id string) error {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id+" not found")
	}
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("select job status: %w", err))
	}
	return apperrors.Conflict("job status " + status + " cannot move backward")
}

// AppendLog appends one log line. Single INSERT, no read of prior logs.
func (r *JobRepo) AppendLog(ctx context.Context, id, message string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("job id is required")
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
      WITH touched AS (
        UPDATE jobs SET updated_at = $3 WHERE id = $1 RETURNING id
      )
      INSERT INTO job_logs (job_id, message, created_at)
      SELECT id, $2, $3 FROM touched
    `, id, message, now)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("append job log: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("append job log result: %w", err))
	}
	if affected == 0 {
		return apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id+" not found")
	}

	return nil
}

// ListJobs returns jobs newest first, filtered conjunctively, without logs.
func (r *JobRepo) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Repository != "" {
		query += fmt.Sprintf(" AND repository = $%d", argIdx)
		args = append(args, filter.Repository)
		argIdx++
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperrors.Validationf("invalid status %q", filter.Status)
		}
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query jobs: %w", err))
	}
	defer rows.Close()

	jobs := []*model.Job{}
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, apperrors.MapDBError(fmt.Errorf("scan job: %w", scanErr))
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("iterate jobs: %w", rowsErr))
	}

	return jobs, nil
}

// SQL used by ClaimNext to atomically claim the next runnable job. Runnable
// means pending, or in_progress with an expired claim lease (a worker
// crashed mid-run). SKIP LOCKED keeps concurrent workers off the same row.
const claimNextSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE status = 'pending'
       OR (status = 'in_progress' AND (claim_expires_at IS NULL OR claim_expires_at <= $1))
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'in_progress',
    claim_expires_at = $2,
    updated_at = $1
  FROM cte
  WHERE j.id = cte.id
  RETURNING ` + jobColumns

// ClaimNext claims the oldest runnable job, extending its lease by the
// given duration. Returns model.ErrNoJobsAvailable when nothing is
// runnable.
func (r *JobRepo) ClaimNext(ctx context.Context, lease time.Duration) (*model.Job, error) {
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, claimNextSQL, now, now.Add(lease))

	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, apperrors.MapDBError(fmt.Errorf("claim job: %w", err))
	}

	logs, err := r.loadLogs(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	job.Logs = logs

	return job, nil
}

// ExtendClaim renews the lease on a claimed job so long-running workflows
// are not reclaimed by another worker mid-run.
func (r *JobRepo) ExtendClaim(ctx context.Context, id string, lease time.Duration) error {
	now := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
      UPDATE jobs
      SET claim_expires_at = $2, updated_at = $3
      WHERE id = $1 AND status = 'in_progress'
    `, id, now.Add(lease), now)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("extend claim: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("extend claim result: %w", err))
	}
	if affected == 0 {
		return apperrors.Wrap(ErrJobNotFound, apperrors.ErrCodeNotFound, "job "+id+" is not claimable")
	}

	return nil
}

func (r *JobRepo) loadLogs(ctx context.Context, id string) ([]model.LogEntry, error) {
	logs := []model.LogEntry{}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, `
          SELECT message, created_at
          FROM job_logs
          WHERE job_id = $1
          ORDER BY id ASC
        `, id)
		if queryErr != nil {
			return fmt.Errorf("query job logs: %w", queryErr)
		}

		collected, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LogEntry, error) {
			var entry model.LogEntry
			scanErr := row.Scan(&entry.Message, &entry.CreatedAt)
			return entry, scanErr
		})
		if collectErr != nil {
			return fmt.Errorf("collect job logs: %w", collectErr)
		}

		logs = append(logs, collected...)
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return logs, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var (
		resultPR sql.NullInt64
		jobErr   sql.NullString
	)

	if err := scanner.Scan(
		&job.ID,
		&job.Repository,
		&job.InstallationID,
		&job.SourcePR,
		&job.TargetBranch,
		&job.RequestedBy,
		&job.CommentID,
		&job.Status,
		&resultPR,
		&jobErr,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if resultPR.Valid {
		v := int(resultPR.Int64)
		job.ResultPR = &v
	}
	if jobErr.Valid {
		v := jobErr.String
		job.Error = &v
	}

	return job, nil
}
