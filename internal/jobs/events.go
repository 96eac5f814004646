package jobs

// Canonical worker event names. The worker posts these back to
// POST /jobs/{id}/events; the orchestrator synthesizes the launch pair.
const (
	EventWorkerLaunched       = "worker_launched"
	EventWorkerStarted        = "worker_started"
	EventRepoCloned           = "repo_cloned"
	EventPRDParsed            = "prd_parsed"
	EventOrchestratorStarted  = "orchestrator_started"
	EventOrchestratorComplete = "orchestrator_complete"
	EventDeployStarted        = "deploy_started"
	EventReadinessCheck       = "readiness_check"
	EventReadinessPassed      = "readiness_passed"
	EventReadinessFixing      = "readiness_fixing"
	EventReadinessFailed      = "readiness_failed"
	EventDeployVerifying      = "deploy_verifying"
	EventDeployed             = "deployed"
	EventCompleted            = "completed"
	EventBuildComplete        = "build_complete"
	EventPRCreated            = "pr_created"
	EventBuildFailed          = "build_failed"
	EventFailed               = "failed"
	EventLaunchFailed         = "launch_failed"
)
