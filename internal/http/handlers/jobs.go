package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stencil/internal/domain"
	"stencil/internal/jobstore"
)

// CreateJob validates the request synchronously and enqueues a job. No
// record exists for rejected input.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateJobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := input.Validate(); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
		return
	}

	jobID := uuid.NewString()
	input.Normalize(jobID)

	job := &domain.Job{
		ID:             jobID,
		Prompt:         input.Prompt,
		StyleContext:   input.StyleContext,
		LayoutIntent:   input.LayoutIntent,
		RenderSizeHint: input.RenderSizeHint,
		AssetType:      input.AssetType,
		Name:           input.Name,
	}
	created, err := a.Store.Create(r.Context(), job)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue job")
		return
	}

	a.json(w, http.StatusAccepted, created)
}

// GetJob returns the full current record for one job, including the
// component manifest or structured error once terminal.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: get job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, job)
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobstore.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.JobStatus(status)
	}
	jobs, err := a.Store.List(r.Context(), filter)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}
