// Package metrics exposes prometheus collectors for the orchestrator.
package metrics

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prom.NewRegistry()

	// JobsCreated counts jobs accepted over the webhook.
	JobsCreated = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "jobs_created_total", Help: "Jobs accepted over the webhook"})
	// JobsDeduplicated counts webhook submissions answered with an existing active job.
	JobsDeduplicated = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "jobs_deduplicated_total", Help: "Webhook submissions deduplicated against an active job"})
	// JobsLaunched counts successful worker launches.
	JobsLaunched = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "jobs_launched_total", Help: "Worker executions launched"})
	// LaunchFailures counts launches the runtime refused.
	LaunchFailures = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "launch_failures_total", Help: "Worker launches that failed at the acknowledge stage"})
	// EventsIngested counts worker callback events appended to the log.
	EventsIngested = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "events_ingested_total", Help: "Worker callback events ingested"})
	// NotifyFailures counts dropped or failed downstream notifications.
	NotifyFailures = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "notify_failures_total", Help: "Downstream notification posts that failed or were dropped"})
	// StaleJobsRecovered counts running jobs failed by the recovery sweep.
	StaleJobsRecovered = prom.NewCounter(prom.CounterOpts{Namespace: "prdflow", Name: "stale_jobs_recovered_total", Help: "Running jobs failed by the stale sweep"})
	// RunningJobs tracks the dispatcher's last observed running count.
	RunningJobs = prom.NewGauge(prom.GaugeOpts{Namespace: "prdflow", Name: "running_jobs", Help: "Jobs currently in status running, as last observed by the dispatcher"})
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		registry.MustRegister(
			JobsCreated, JobsDeduplicated, JobsLaunched, LaunchFailures,
			EventsIngested, NotifyFailures, StaleJobsRecovered, RunningJobs,
		)
		registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	})
}

// Handler returns the /metrics scrape handler backed by the private registry.
func Handler() http.Handler {
	register()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
