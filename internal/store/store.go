// Package store provides durable persistence for jobs and their event log.
//
// The SQL implementation runs on either Postgres (pgx) or SQLite (modernc),
// selected from the DATABASE_URL scheme. The store is the sole
// synchronization substrate for the orchestrator: the dispatcher's claim and
// the recovery sweep rely on its row-level atomicity.
package store

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
)

// Store is the persistence contract consumed by the dispatcher, the recovery
// sweep, and the HTTP handlers.
type Store interface {
	// CreateJob allocates an id and persists the row with status=pending and
	// build_status=queued. Empty optional params receive their defaults.
	CreateJob(ctx context.Context, params jobs.CreateParams) (*jobs.Job, error)

	// FindActiveJob returns the most recently created pending or running job
	// for the (repoURL, branch) tuple, or nil. Used for webhook dedup.
	FindActiveJob(ctx context.Context, repoURL, branch string) (*jobs.Job, error)

	// GetJob returns the job or nil when absent.
	GetJob(ctx context.Context, id string) (*jobs.Job, error)

	// ClaimNextPending atomically transitions the oldest pending job to
	// running and returns it, or nil when no pending job exists. The claim is
	// race-free across concurrent callers: a single conditional
	// UPDATE ... RETURNING round trip.
	ClaimNextPending(ctx context.Context) (*jobs.Job, error)

	// CountRunning returns the number of jobs currently in status=running.
	CountRunning(ctx context.Context) (int, error)

	// SetExecutionID records the launcher's execution id. At most one write
	// per job; later attempts are silent no-ops.
	SetExecutionID(ctx context.Context, id, execID string) error

	// SetStatus writes the orchestration status and bumps updated_at.
	// Transitions out of a terminal state are silently refused.
	SetStatus(ctx context.Context, id string, status jobs.Status) error

	// BumpUpdatedAt touches updated_at without a status change. Called on
	// every event ingest so the recovery sweep sees live workers.
	BumpUpdatedAt(ctx context.Context, id string) error

	// AppendEvent inserts one event log row. Returns NotFoundError when the
	// job does not exist.
	AppendEvent(ctx context.Context, jobID, event string, detail json.RawMessage) error

	// ListEvents returns the job's events ordered by created_at, ties broken
	// stably by insertion id.
	ListEvents(ctx context.Context, jobID string) ([]jobs.Event, error)

	// SetFact writes one extracted deployment fact column.
	SetFact(ctx context.Context, id string, fact jobs.Fact, value string) error

	// SetBuildStatus writes the advisory build status and message.
	SetBuildStatus(ctx context.Context, id string, status jobs.BuildStatus, message string) error

	// SweepStale fails every running job whose updated_at is older than the
	// threshold and returns how many were transitioned.
	SweepStale(ctx context.Context, threshold time.Duration) (int, error)

	// Ping reports store reachability; backs the health endpoint.
	Ping(ctx context.Context) error

	Close() error
}
