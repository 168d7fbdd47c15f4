// -----------------------------------------------------------------------
// Callback Handler - Webhook endpoint driven by the external worker
// -----------------------------------------------------------------------

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/jobs"
)

type CallbackHandler struct {
	service *jobs.Service
	logger  arbor.ILogger
}

func NewCallbackHandler(service *jobs.Service, logger arbor.ILogger) *CallbackHandler {
	return &CallbackHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCallback handles POST /api/jobs/{id}/callback and POST
// /api/jobs/callback (job id in the body). Authentication and phase routing
// live in the job service; this layer only maps errors to status codes.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	rc, err := h.service.ParseRequest(r.Context(), r, h.jobIDFromPath(r))
	if err != nil {
		var authErr *jobs.AuthError
		if errors.As(err, &authErr) {
			h.logger.Warn().
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", authErr.Status).
				Msg("Callback rejected")
			WriteError(w, authErr.Status, authErr.Message)
			return
		}
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ack, err := h.service.HandleCallback(r.Context(), rc)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", rc.JobID).Msg("Callback processing failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, ack)
}

// jobIDFromPath extracts {id} from /api/jobs/{id}/callback, empty when the
// bare /api/jobs/callback route is used.
func (h *CallbackHandler) jobIDFromPath(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	path = strings.TrimSuffix(path, "/callback")
	if path == "callback" || strings.Contains(path, "/") {
		return ""
	}
	return path
}
