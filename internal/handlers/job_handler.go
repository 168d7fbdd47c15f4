// -----------------------------------------------------------------------
// Job Handler - Job lifecycle API (create, inspect, restart, delete)
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/jobs"
)

type JobHandler struct {
	service *jobs.Service
	logger  arbor.ILogger
}

func NewJobHandler(service *jobs.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// CreateJobHandler handles POST /api/jobs. The response carries the callback
// token exactly once; only its hash survives in the stored job.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req jobs.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, secret, err := h.service.Enqueue(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Str("library_id", req.LibraryID).Msg("Job creation rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"job":           job,
		"callbackToken": secret,
	})
}

// ListJobsHandler handles GET /api/jobs with status/library/user filters
// and pagination.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &interfaces.JobListOptions{
		Status:    models.JobStatus(r.URL.Query().Get("status")),
		LibraryID: r.URL.Query().Get("library_id"),
		UserEmail: r.URL.Query().Get("user_email"),
	}

	list, err := h.service.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	page, pageSize := GetPaginationParams(r)
	pageJobs, pagination := PaginateJobs(list, page, pageSize)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":       pageJobs,
		"pagination": pagination,
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := h.jobIDFromPath(r)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// RestartJobHandler handles POST /api/jobs/{id}/restart. Only terminal jobs
// can be restarted.
func (h *JobHandler) RestartJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := h.jobIDFromPath(r)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.service.Restart(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DeleteJobHandler handles DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := h.jobIDFromPath(r)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	if err := h.service.Delete(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	WriteSuccess(w, "job deleted")
}

// jobIDFromPath extracts {id} from /api/jobs/{id}[/suffix]
func (h *JobHandler) jobIDFromPath(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if idx := strings.Index(path, "/"); idx >= 0 {
		path = path[:idx]
	}
	return path
}
