package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/retry"
)

type statusRecorder struct {
	jobID   string
	status  jobs.BuildStatus
	message string
	calls   int
}

func (r *statusRecorder) SetBuildStatus(ctx context.Context, id string, status jobs.BuildStatus, message string) error {
	r.jobID = id
	r.status = status
	r.message = message
	r.calls++
	return nil
}

type capturedPost struct {
	path   string
	bearer string
	body   []byte
}

func newCaptureServer(t *testing.T) (*httptest.Server, chan capturedPost) {
	t.Helper()
	posts := make(chan capturedPost, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		posts <- capturedPost{
			path:   r.URL.Path,
			bearer: r.Header.Get("Authorization"),
			body:   body,
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, posts
}

func waitForPost(t *testing.T, posts chan capturedPost) capturedPost {
	t.Helper()
	select {
	case p := <-posts:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification post")
		return capturedPost{}
	}
}

func TestMappingTable(t *testing.T) {
	cases := []struct {
		event   string
		status  jobs.BuildStatus
		message string
	}{
		{"worker_launched", jobs.BuildQueued, "Worker launched"},
		{"worker_started", jobs.BuildQueued, "Build starting..."},
		{"repo_cloned", jobs.BuildCloning, "Repository cloned"},
		{"prd_parsed", jobs.BuildBuilding, "PRD parsed, planning build..."},
		{"orchestrator_started", jobs.BuildBuilding, "Building application..."},
		{"orchestrator_complete", jobs.BuildBuilding, "Build complete, preparing for deployment..."},
		{"deploy_started", jobs.BuildDeploying, "Starting deployment..."},
		{"readiness_check", jobs.BuildDeploying, "Checking deployment readiness..."},
		{"readiness_passed", jobs.BuildDeploying, "Deployment readiness check passed"},
		{"readiness_fixing", jobs.BuildDeploying, "Fixing build issues before deployment..."},
		{"readiness_failed", jobs.BuildError, "Deployment readiness check failed"},
		{"deploy_verifying", jobs.BuildDeploying, "Verifying deployment..."},
		{"deployed", jobs.BuildDeployed, "Deployed successfully"},
		{"completed", jobs.BuildDeployed, "Build completed successfully"},
		{"build_complete", jobs.BuildDeployed, "Build completed successfully"},
		{"pr_created", jobs.BuildBuilding, "Pull request created"},
		{"build_failed", jobs.BuildFailed, "Build failed"},
		{"failed", jobs.BuildFailed, "Build failed"},
		{"launch_failed", jobs.BuildError, "Failed to launch build worker"},
	}
	require.Len(t, buildStatusByEvent, len(cases))

	for _, tc := range cases {
		status, message, ok := MappedStatus(tc.event)
		require.Truef(t, ok, "event %s missing from table", tc.event)
		require.Equalf(t, tc.status, status, "event %s status", tc.event)
		require.Equalf(t, tc.message, message, "event %s message", tc.event)
	}
}

func TestForwardUnknownEventIgnored(t *testing.T) {
	rec := &statusRecorder{}
	n := New(rec, Options{})
	n.Start()
	defer n.Stop()

	n.Forward(t.Context(), "job-1", "something_else", nil)

	require.Zero(t, rec.calls)
}

func TestForwardPersistsAndPosts(t *testing.T) {
	srv, posts := newCaptureServer(t)
	rec := &statusRecorder{}
	n := New(rec, Options{NotifierURL: srv.URL, Bearer: "notify-secret"})
	n.Start()
	defer n.Stop()

	n.Forward(t.Context(), "job-1", "deploy_started", nil)

	require.Equal(t, 1, rec.calls)
	require.Equal(t, "job-1", rec.jobID)
	require.Equal(t, jobs.BuildDeploying, rec.status)
	require.Equal(t, "Starting deployment...", rec.message)

	p := waitForPost(t, posts)
	require.Equal(t, "/api/webhook/build-event", p.path)
	require.Equal(t, "Bearer notify-secret", p.bearer)

	var got BuildEvent
	require.NoError(t, json.Unmarshal(p.body, &got))
	require.Equal(t, "job-1", got.JobID)
	require.Equal(t, jobs.BuildDeploying, got.Status)
	require.Equal(t, "Starting deployment...", got.Message)
}

func TestForwardMessageOverride(t *testing.T) {
	rec := &statusRecorder{}
	n := New(rec, Options{})
	n.Start()
	defer n.Stop()

	detail := json.RawMessage(`{"message":"Deploying to eu-west"}`)
	n.Forward(t.Context(), "job-1", "deploy_started", detail)

	require.Equal(t, "Deploying to eu-west", rec.message)
}

func TestForwardNonStringMessageFallsBack(t *testing.T) {
	rec := &statusRecorder{}
	n := New(rec, Options{})
	n.Start()
	defer n.Stop()

	detail := json.RawMessage(`{"message":42}`)
	n.Forward(t.Context(), "job-1", "deploy_started", detail)

	require.Equal(t, "Starting deployment...", rec.message)
}

func TestSendBuildEventWithoutNotifierURL(t *testing.T) {
	rec := &statusRecorder{}
	n := New(rec, Options{})
	n.Start()
	defer n.Stop()

	// No downstream configured; must not panic or block.
	n.SendBuildEvent(BuildEvent{JobID: "job-1", Status: jobs.BuildQueued, Message: "Build queued"})
}

func TestPostRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	t.Cleanup(srv.Close)

	rec := &statusRecorder{}
	n := New(rec, Options{
		NotifierURL: srv.URL,
		Retry:       retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 3),
	})
	n.Start()
	defer n.Stop()

	n.SendBuildEvent(BuildEvent{JobID: "job-1", Status: jobs.BuildQueued, Message: "Build queued"})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("post never succeeded after retries")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
}

func TestPostCallback(t *testing.T) {
	srv, posts := newCaptureServer(t)
	rec := &statusRecorder{}
	n := New(rec, Options{})
	n.Start()
	defer n.Stop()

	detail := json.RawMessage(`{"live_url":"https://a.example"}`)
	n.PostCallback(srv.URL+"/hook", "job-1", "deployed", detail)

	p := waitForPost(t, posts)
	require.Equal(t, "/hook", p.path)
	require.Empty(t, p.bearer)

	var got map[string]any
	require.NoError(t, json.Unmarshal(p.body, &got))
	require.Equal(t, "job-1", got["job_id"])
	require.Equal(t, "deployed", got["event"])
	require.NotNil(t, got["detail"])
}
