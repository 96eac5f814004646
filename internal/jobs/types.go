// Package jobs defines the job and job-event domain types tracked by the
// orchestrator.
package jobs

import (
	"encoding/json"
	"time"
)

// Status is the coarse orchestration lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BuildStatus is the fine-grained worker-facing state derived from events.
// Advisory only; it never drives orchestration.
type BuildStatus string

const (
	BuildQueued     BuildStatus = "queued"
	BuildCloning    BuildStatus = "cloning"
	BuildInstalling BuildStatus = "installing"
	BuildBuilding   BuildStatus = "building"
	BuildTesting    BuildStatus = "testing"
	BuildDeploying  BuildStatus = "deploying"
	BuildDeployed   BuildStatus = "deployed"
	BuildCompleted  BuildStatus = "completed"
	BuildError      BuildStatus = "error"
	BuildFailed     BuildStatus = "failed"
	BuildCancelled  BuildStatus = "cancelled"
)

// Mode selects the worker pipeline variant. Stored and handed to the worker
// verbatim; the orchestrator never branches on it.
type Mode string

const (
	ModeFullBuild  Mode = "full-build"
	ModeDeployOnly Mode = "deploy-only"
	ModeAuto       Mode = "auto"
)

// ValidMode reports whether m is one of the accepted build modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModeFullBuild, ModeDeployOnly, ModeAuto:
		return true
	}
	return false
}

// Defaults applied when the submitter omits optional fields.
const (
	DefaultBranch  = "main"
	DefaultPRDPath = "docs/PRD.md"
)

// Job is one end-to-end build request tracked by the orchestrator.
type Job struct {
	ID           string          `json:"id"`
	RepoURL      string          `json:"repo_url"`
	Branch       string          `json:"branch"`
	PRDPath      string          `json:"prd_path"`
	Mode         Mode            `json:"mode"`
	Status       Status          `json:"status"`
	BuildStatus  BuildStatus     `json:"build_status"`
	BuildMessage string          `json:"build_message"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CallbackURL  string          `json:"callback_url,omitempty"`

	// Set once at the pending→running transition.
	WorkerExecutionID string `json:"worker_execution_id,omitempty"`

	// Facts extracted from specific worker events.
	PRURL        string `json:"pr_url,omitempty"`
	LiveURL      string `json:"live_url,omitempty"`
	DeploySiteID string `json:"deploy_site_id,omitempty"`
	DBProjectID  string `json:"db_project_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is an append-only log record about a job's progress, reported by the
// worker or synthesized by the orchestrator.
type Event struct {
	ID        int64           `json:"id"`
	JobID     string          `json:"job_id"`
	Event     string          `json:"event"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateParams carries validated webhook input into the store.
type CreateParams struct {
	RepoURL     string
	Branch      string
	PRDPath     string
	Mode        Mode
	Metadata    json.RawMessage
	CallbackURL string
}

// Fact names a typed deployment fact column on the job row.
type Fact string

const (
	FactPRURL        Fact = "pr_url"
	FactLiveURL      Fact = "live_url"
	FactDeploySiteID Fact = "deploy_site_id"
	FactDBProjectID  Fact = "db_project_id"
)
