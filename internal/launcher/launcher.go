// Package launcher hands claimed jobs to the external worker runtime.
//
// Launch is fire-and-forget: the worker runs for tens of minutes to hours, so
// the launcher only waits for the runtime to acknowledge acceptance and
// returns an opaque execution id.
package launcher

import (
	"context"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
)

// Launcher starts one worker execution for a claimed job.
type Launcher interface {
	Launch(ctx context.Context, job *jobs.Job) (executionID string, err error)
}

// EnvVar is one environment variable handed to the worker container.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WorkerEnv assembles the environment contract for a worker execution. The
// worker reads its entire configuration from these variables.
func WorkerEnv(job *jobs.Job, orchestratorURL, webhookSecret string) []EnvVar {
	return []EnvVar{
		{Name: "JOB_ID", Value: job.ID},
		{Name: "REPO_URL", Value: job.RepoURL},
		{Name: "BRANCH", Value: job.Branch},
		{Name: "PRD_PATH", Value: job.PRDPath},
		{Name: "MODE", Value: string(job.Mode)},
		{Name: "ORCHESTRATOR_URL", Value: orchestratorURL},
		{Name: "WEBHOOK_SECRET", Value: webhookSecret},
	}
}
