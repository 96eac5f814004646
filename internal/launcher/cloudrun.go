package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// CloudRunLauncher starts worker executions on Cloud Run Jobs via the
// jobs.run REST method. The call returns once the runtime acknowledges the
// execution; it never waits for the worker to finish.
type CloudRunLauncher struct {
	project         string
	region          string
	jobName         string
	orchestratorURL string
	webhookSecret   string

	baseURL string
	client  *http.Client
}

// CloudRunOption customizes the launcher, mainly for tests.
type CloudRunOption func(*CloudRunLauncher)

// WithBaseURL overrides the Cloud Run API endpoint.
func WithBaseURL(u string) CloudRunOption {
	return func(l *CloudRunLauncher) { l.baseURL = u }
}

// WithTokenSource overrides the default application credentials.
func WithTokenSource(ts oauth2.TokenSource) CloudRunOption {
	return func(l *CloudRunLauncher) {
		l.client = oauth2.NewClient(context.Background(), ts)
		l.client.Timeout = 30 * time.Second
	}
}

// NewCloudRun creates a launcher for the named Cloud Run job using
// application default credentials.
func NewCloudRun(ctx context.Context, project, region, jobName, orchestratorURL, webhookSecret string, opts ...CloudRunOption) (*CloudRunLauncher, error) {
	l := &CloudRunLauncher{
		project:         project,
		region:          region,
		jobName:         jobName,
		orchestratorURL: orchestratorURL,
		webhookSecret:   webhookSecret,
		baseURL:         "https://run.googleapis.com",
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, errors.LaunchError("cloud run credentials unavailable", err)
		}
		l.client = oauth2.NewClient(ctx, ts)
		l.client.Timeout = 30 * time.Second
	}
	return l, nil
}

// runRequest is the jobs.run body: one container override carrying the
// worker's environment.
type runRequest struct {
	Overrides struct {
		ContainerOverrides []struct {
			Env []EnvVar `json:"env"`
		} `json:"containerOverrides"`
	} `json:"overrides"`
}

// runOperation is the subset of the long-running operation response we need.
type runOperation struct {
	Name     string `json:"name"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

// Launch posts a jobs.run request with the worker environment and returns the
// execution name from the acknowledge response.
func (l *CloudRunLauncher) Launch(ctx context.Context, job *jobs.Job) (string, error) {
	var body runRequest
	body.Overrides.ContainerOverrides = []struct {
		Env []EnvVar `json:"env"`
	}{
		{Env: WorkerEnv(job, l.orchestratorURL, l.webhookSecret)},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", errors.LaunchError("encode run request", err)
	}

	url := fmt.Sprintf("%s/v2/projects/%s/locations/%s/jobs/%s:run",
		l.baseURL, l.project, l.region, l.jobName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.LaunchError("build run request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.LaunchError("cloud run jobs.run call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.LaunchError("read run response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.LaunchError("cloud run rejected execution", nil).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(raw))
	}

	var op runOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return "", errors.LaunchError("decode run response", err)
	}
	execID := op.Metadata.Name
	if execID == "" {
		execID = op.Name
	}
	if execID == "" {
		return "", errors.LaunchError("run response missing execution name", nil)
	}

	slog.Info("Worker execution launched",
		logfields.JobID(job.ID),
		logfields.ExecutionID(execID))
	return execID, nil
}
