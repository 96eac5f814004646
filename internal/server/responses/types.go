// Package responses defines the JSON payloads of the public HTTP surface.
package responses

import "git.home.luguber.info/inful/prdflow/internal/jobs"

// JobAccepted answers POST /webhook.
type JobAccepted struct {
	JobID        string      `json:"job_id"`
	Status       jobs.Status `json:"status"`
	Deduplicated bool        `json:"deduplicated,omitempty"`
}

// EventAccepted answers POST /jobs/{id}/events.
type EventAccepted struct {
	OK bool `json:"ok"`
}

// JobStatus answers GET /jobs/{id}/status: the full job view plus its
// ordered event log.
type JobStatus struct {
	jobs.Job
	Events []jobs.Event `json:"events"`
}

// Health answers GET /health.
type Health struct {
	Status string `json:"status"`
}
