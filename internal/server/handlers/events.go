package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	derrors "git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/server/responses"
)

// eventRequest is the worker callback body.
type eventRequest struct {
	Event  string          `json:"event" validate:"required"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// HandleEvent ingests one worker callback event: append to the log, refresh
// updated_at, extract deployment facts, apply terminal transitions, then fan
// out notifications.
func (h *Handlers) HandleEvent(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("invalid JSON payload").
			WithContext("error", err.Error()))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("event is required").
			WithContext("error", err.Error()))
		return
	}

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

	if err := h.store.AppendEvent(r.Context(), jobID, req.Event, req.Detail); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.StorageError("failed to append event", err))
		return
	}
	// Any event counts as a liveness signal, even one that changes nothing.
	if err := h.store.BumpUpdatedAt(r.Context(), jobID); err != nil {
		slog.Error("Failed to bump updated_at", logfields.JobID(jobID), logfields.Error(err))
	}

	h.applyEvent(r, jobID, req.Event, req.Detail)

	metrics.EventsIngested.Inc()
	h.notifier.Forward(r.Context(), jobID, req.Event, req.Detail)
	if job.CallbackURL != "" {
		h.notifier.PostCallback(job.CallbackURL, jobID, req.Event, req.Detail)
	}

	_ = writeJSON(w, http.StatusCreated, responses.EventAccepted{OK: true})
}

// applyEvent handles the per-event side effects: fact extraction and terminal
// status transitions. Failures are logged; the ingest has already committed.
func (h *Handlers) applyEvent(r *http.Request, jobID, event string, detail json.RawMessage) {
	ctx := r.Context()

	switch event {
	case jobs.EventPRCreated:
		if v := stringField(detail, "pr_url"); v != "" {
			h.setFact(r, jobID, jobs.FactPRURL, v)
		}
	case jobs.EventDeployed:
		// deployed records facts only; completion needs an explicit
		// completed event.
		if v := stringField(detail, "live_url"); v != "" {
			h.setFact(r, jobID, jobs.FactLiveURL, v)
		}
		if v := stringField(detail, "netlify_site_id"); v != "" {
			h.setFact(r, jobID, jobs.FactDeploySiteID, v)
		}
		if v := stringField(detail, "neon_project_id"); v != "" {
			h.setFact(r, jobID, jobs.FactDBProjectID, v)
		}
	case jobs.EventFailed, jobs.EventBuildFailed:
		if err := h.store.SetStatus(ctx, jobID, jobs.StatusFailed); err != nil {
			slog.Error("Failed to mark job failed", logfields.JobID(jobID), logfields.Error(err))
		}
	case jobs.EventCompleted, jobs.EventBuildComplete:
		if err := h.store.SetStatus(ctx, jobID, jobs.StatusCompleted); err != nil {
			slog.Error("Failed to mark job completed", logfields.JobID(jobID), logfields.Error(err))
		}
	}
}

func (h *Handlers) setFact(r *http.Request, jobID string, fact jobs.Fact, value string) {
	if err := h.store.SetFact(r.Context(), jobID, fact, value); err != nil {
		slog.Error("Failed to record deployment fact",
			logfields.JobID(jobID),
			slog.String("fact", string(fact)),
			logfields.Error(err))
	}
}

// stringField extracts a top-level string field from a raw JSON object.
// Missing, non-object, and non-string cases all return "".
func stringField(detail json.RawMessage, key string) string {
	if len(detail) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(detail, &fields); err != nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}
