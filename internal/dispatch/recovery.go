package dispatch

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/prdflow/internal/logfields"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/store"
)

// Recovery fails running jobs whose workers have stopped reporting. Any
// event ingest bumps the job's updated_at, so a job only goes stale when the
// worker has been silent for the full threshold.
type Recovery struct {
	store      store.Store
	staleAfter time.Duration
}

// NewRecovery wires the stale-job sweep.
func NewRecovery(st store.Store, staleAfter time.Duration) *Recovery {
	return &Recovery{store: st, staleAfter: staleAfter}
}

// RunSweep fails every stale running job in one statement. The transition is
// silent: no synthetic event, no notification. The failed status itself is
// the record; inventing worker events the worker never sent would corrupt
// the log.
func (r *Recovery) RunSweep(ctx context.Context) {
	swept, err := r.store.SweepStale(ctx, r.staleAfter)
	if err != nil {
		slog.Error("Stale job sweep failed", logfields.Error(err))
		return
	}
	if swept == 0 {
		return
	}

	metrics.StaleJobsRecovered.Add(float64(swept))
	slog.Warn("Recovered stale jobs",
		logfields.Count(swept),
		slog.Duration("stale_after", r.staleAfter))
}
