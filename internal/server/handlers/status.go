package handlers

import (
	"net/http"

	derrors "git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/server/responses"
)

// HandleStatus serves the full job view plus its ordered event log.
// Unauthenticated: job ids are unguessable UUIDs and the view is read-only.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.StorageError("failed to load job", err))
		return
	}
	if job == nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("job not found").
			WithContext("job_id", jobID))
		return
	}

	events, err := h.store.ListEvents(r.Context(), jobID)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.StorageError("failed to load events", err))
		return
	}

	_ = writeJSON(w, http.StatusOK, responses.JobStatus{Job: *job, Events: events})
}

// HandleHealth reports store reachability.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		_ = writeJSON(w, http.StatusServiceUnavailable, responses.Health{Status: "unhealthy"})
		return
	}
	_ = writeJSON(w, http.StatusOK, responses.Health{Status: "ok"})
}
