// Package httpx provides the HTTP query API for the backport job system.
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/target/backport-bot/internal/core"
	"github.com/target/backport-bot/internal/domain/model"
	apperrors "github.com/target/backport-bot/internal/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// JobHandlers provides HTTP handlers for job query operations.
type JobHandlers struct {
	Jobs core.JobStore
}

// GetOrList handles GET /api/jobs. With an id query parameter it returns
// that job; otherwise it lists jobs newest first, optionally filtered by
// repository and status.
func (h *JobHandlers) GetOrList(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		h.getByID(w, r, id)
		return
	}
	h.list(w, r)
}

func (h *JobHandlers) getByID(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.Jobs.GetJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get_job_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *JobHandlers) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseJobFilter(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: err})
		return
	}

	jobs, err := h.Jobs.ListJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, "list_jobs_failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// parseJobFilter builds a model.JobFilter from query parameters, rejecting
// unknown status values instead of silently matching nothing.
func parseJobFilter(r *http.Request) (model.JobFilter, error) {
	q := r.URL.Query()

	filter := model.JobFilter{
		Repository: q.Get("repository"),
		Limit:      parseIntQuery(r, "limit", defaultListLimit),
	}
	if filter.Limit < 1 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	if raw := q.Get("status"); raw != "" {
		status := model.JobStatus(raw)
		if !status.Valid() {
			return model.JobFilter{}, errors.New("status must be one of: pending, in_progress, completed, failed")
		}
		filter.Status = status
	}

	return filter, nil
}

// writeStoreError maps a store error to an HTTP response without leaking
// internal error text for server-side faults.
func writeStoreError(w http.ResponseWriter, errCode string, err error) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: errors.New("job not found")})
	case apperrors.ErrCodeValidation:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: errCode, Err: err})
	default:
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: errCode,
			Err:     errors.New("internal error"),
		})
	}
}

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
