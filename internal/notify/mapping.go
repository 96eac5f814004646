package notify

import "git.home.luguber.info/inful/prdflow/internal/jobs"

// mappedStatus pairs the advisory build status with its default message for
// one worker event.
type mappedStatus struct {
	Status  jobs.BuildStatus
	Message string
}

// buildStatusByEvent is the canonical event → (build_status, message) table.
// Events absent from the table are ignored by the notifier but still land in
// the job's event log.
var buildStatusByEvent = map[string]mappedStatus{
	jobs.EventWorkerLaunched:       {jobs.BuildQueued, "Worker launched"},
	jobs.EventWorkerStarted:        {jobs.BuildQueued, "Build starting..."},
	jobs.EventRepoCloned:           {jobs.BuildCloning, "Repository cloned"},
	jobs.EventPRDParsed:            {jobs.BuildBuilding, "PRD parsed, planning build..."},
	jobs.EventOrchestratorStarted:  {jobs.BuildBuilding, "Building application..."},
	jobs.EventOrchestratorComplete: {jobs.BuildBuilding, "Build complete, preparing for deployment..."},
	jobs.EventDeployStarted:        {jobs.BuildDeploying, "Starting deployment..."},
	jobs.EventReadinessCheck:       {jobs.BuildDeploying, "Checking deployment readiness..."},
	jobs.EventReadinessPassed:      {jobs.BuildDeploying, "Deployment readiness check passed"},
	jobs.EventReadinessFixing:      {jobs.BuildDeploying, "Fixing build issues before deployment..."},
	jobs.EventReadinessFailed:      {jobs.BuildError, "Deployment readiness check failed"},
	jobs.EventDeployVerifying:      {jobs.BuildDeploying, "Verifying deployment..."},
	jobs.EventDeployed:             {jobs.BuildDeployed, "Deployed successfully"},
	jobs.EventCompleted:            {jobs.BuildDeployed, "Build completed successfully"},
	jobs.EventBuildComplete:        {jobs.BuildDeployed, "Build completed successfully"},
	jobs.EventPRCreated:            {jobs.BuildBuilding, "Pull request created"},
	jobs.EventBuildFailed:          {jobs.BuildFailed, "Build failed"},
	jobs.EventFailed:               {jobs.BuildFailed, "Build failed"},
	jobs.EventLaunchFailed:         {jobs.BuildError, "Failed to launch build worker"},
}

// MappedStatus exposes the table for callers that only need the lookup.
func MappedStatus(event string) (jobs.BuildStatus, string, bool) {
	m, ok := buildStatusByEvent[event]
	return m.Status, m.Message, ok
}
