package launcher

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
)

// DryRunLauncher logs launch intent and returns a deterministic synthetic
// execution id without contacting any runtime. Used in local development and
// in tests.
type DryRunLauncher struct{}

// NewDryRun creates a dry-run launcher.
func NewDryRun() *DryRunLauncher {
	return &DryRunLauncher{}
}

// Launch returns "dry-run-" followed by the first 8 characters of the job id.
func (l *DryRunLauncher) Launch(ctx context.Context, job *jobs.Job) (string, error) {
	execID := "dry-run-" + shortID(job.ID)
	slog.Info("Dry-run launch, no worker started",
		logfields.JobID(job.ID),
		logfields.Repo(job.RepoURL),
		logfields.Branch(job.Branch),
		logfields.ExecutionID(execID))
	return execID, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
