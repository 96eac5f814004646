// Package dispatch drives the pull side of the orchestrator: a periodic tick
// that claims pending jobs and launches workers, and a recovery sweep that
// fails jobs whose workers went silent.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/launcher"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/notify"
	"git.home.luguber.info/inful/prdflow/internal/store"
)

// Dispatcher moves pending jobs into running by launching a worker execution
// for each claimed job. One claim per tick keeps launch pacing simple and
// lets the concurrency cap stay accurate between ticks.
type Dispatcher struct {
	store    store.Store
	launcher launcher.Launcher
	notifier *notify.Notifier

	maxConcurrent int
}

// NewDispatcher wires the dispatcher against its collaborators.
func NewDispatcher(st store.Store, l launcher.Launcher, n *notify.Notifier, maxConcurrent int) *Dispatcher {
	return &Dispatcher{
		store:         st,
		launcher:      l,
		notifier:      n,
		maxConcurrent: maxConcurrent,
	}
}

// RunTick performs one dispatch cycle: check the cap, claim the oldest
// pending job, launch it. Errors are handled internally; the tick never
// propagates a failure to the scheduler.
func (d *Dispatcher) RunTick(ctx context.Context) {
	running, err := d.store.CountRunning(ctx)
	if err != nil {
		slog.Error("Dispatch tick: failed to count running jobs", logfields.Error(err))
		return
	}
	metrics.RunningJobs.Set(float64(running))
	if running >= d.maxConcurrent {
		slog.Debug("Dispatch tick: at concurrency cap", logfields.Count(running))
		return
	}

	job, err := d.store.ClaimNextPending(ctx)
	if err != nil {
		slog.Error("Dispatch tick: claim failed", logfields.Error(err))
		return
	}
	if job == nil {
		return
	}

	slog.Info("Claimed job for dispatch",
		logfields.JobID(job.ID),
		logfields.Repo(job.RepoURL),
		logfields.Branch(job.Branch))

	execID, err := d.launcher.Launch(ctx, job)
	if err != nil {
		d.failLaunch(ctx, job, err)
		return
	}

	if err := d.store.SetExecutionID(ctx, job.ID, execID); err != nil {
		slog.Error("Failed to record execution id",
			logfields.JobID(job.ID),
			logfields.ExecutionID(execID),
			logfields.Error(err))
	}

	detail, _ := json.Marshal(map[string]string{"execution_id": execID})
	if err := d.store.AppendEvent(ctx, job.ID, jobs.EventWorkerLaunched, detail); err != nil {
		slog.Error("Failed to log worker_launched event", logfields.JobID(job.ID), logfields.Error(err))
	}

	metrics.JobsLaunched.Inc()
	metrics.RunningJobs.Set(float64(running + 1))
	d.notifier.Forward(ctx, job.ID, jobs.EventWorkerLaunched, detail)

	slog.Info("Worker launched",
		logfields.JobID(job.ID),
		logfields.ExecutionID(execID))
}

// failLaunch transitions a claimed job straight to failed when the runtime
// refused the launch. The job stays claimed: re-queueing would retry a launch
// that already failed once, with no reason to expect a different answer.
func (d *Dispatcher) failLaunch(ctx context.Context, job *jobs.Job, launchErr error) {
	metrics.LaunchFailures.Inc()
	slog.Error("Worker launch failed",
		logfields.JobID(job.ID),
		logfields.Repo(job.RepoURL),
		logfields.Error(launchErr))

	if err := d.store.SetStatus(ctx, job.ID, jobs.StatusFailed); err != nil {
		slog.Error("Failed to mark job failed after launch error", logfields.JobID(job.ID), logfields.Error(err))
	}

	detail, _ := json.Marshal(map[string]string{"error": launchErr.Error()})
	if err := d.store.AppendEvent(ctx, job.ID, jobs.EventLaunchFailed, detail); err != nil {
		slog.Error("Failed to log launch_failed event", logfields.JobID(job.ID), logfields.Error(err))
	}

	d.notifier.Forward(ctx, job.ID, jobs.EventLaunchFailed, detail)
}
