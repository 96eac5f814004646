package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	derrors "git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/notify"
	"git.home.luguber.info/inful/prdflow/internal/server/responses"
)

// webhookRequest is the build submission body.
type webhookRequest struct {
	RepoURL     string          `json:"repo_url" validate:"required,url"`
	Branch      string          `json:"branch"`
	PRDPath     string          `json:"prd_path"`
	Mode        jobs.Mode       `json:"mode"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CallbackURL string          `json:"callback_url" validate:"omitempty,url"`
}

// HandleWebhook accepts a build submission. Submissions for a (repo, branch)
// tuple that already has an active job are answered with that job instead of
// creating a duplicate.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("invalid JSON payload").
			WithContext("error", err.Error()))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("invalid request body").
			WithContext("error", err.Error()))
		return
	}
	if !isGitHubURL(req.RepoURL) {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("repo_url must be a GitHub repository URL").
			WithContext("repo_url", req.RepoURL))
		return
	}
	if req.Mode == "" {
		req.Mode = jobs.ModeFullBuild
	}
	if !jobs.ValidMode(req.Mode) {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("invalid build mode").
			WithContext("mode", string(req.Mode)))
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = jobs.DefaultBranch
	}

	existing, err := h.store.FindActiveJob(r.Context(), req.RepoURL, branch)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.StorageError("failed to check for active job", err))
		return
	}
	if existing != nil {
		metrics.JobsDeduplicated.Inc()
		_ = writeJSON(w, http.StatusOK, responses.JobAccepted{
			JobID:        existing.ID,
			Status:       existing.Status,
			Deduplicated: true,
		})
		return
	}

	job, err := h.store.CreateJob(r.Context(), jobs.CreateParams{
		RepoURL:     req.RepoURL,
		Branch:      branch,
		PRDPath:     req.PRDPath,
		Mode:        req.Mode,
		Metadata:    req.Metadata,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.StorageError("failed to create job", err))
		return
	}

	metrics.JobsCreated.Inc()
	h.notifier.SendBuildEvent(notify.BuildEvent{
		JobID:   job.ID,
		Status:  jobs.BuildQueued,
		Message: "Build queued",
	})

	_ = writeJSON(w, http.StatusCreated, responses.JobAccepted{JobID: job.ID, Status: job.Status})
}

// isGitHubURL reports whether raw is an https GitHub repository URL.
func isGitHubURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return u.Scheme == "https" && (host == "github.com" || host == "www.github.com")
}
