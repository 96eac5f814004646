package launcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/jobs"
)

func testJob() *jobs.Job {
	return &jobs.Job{
		ID:      "0a1b2c3d-0000-4000-8000-000000000000",
		RepoURL: "https://github.com/x/y",
		Branch:  "main",
		PRDPath: "docs/PRD.md",
		Mode:    jobs.ModeFullBuild,
		Status:  jobs.StatusRunning,
	}
}

func TestDryRunExecutionID(t *testing.T) {
	l := NewDryRun()

	execID, err := l.Launch(t.Context(), testJob())
	require.NoError(t, err)
	require.Equal(t, "dry-run-0a1b2c3d", execID)
}

func TestWorkerEnvContract(t *testing.T) {
	env := WorkerEnv(testJob(), "https://orch.example", "s3cret")

	byName := map[string]string{}
	for _, v := range env {
		byName[v.Name] = v.Value
	}
	require.Equal(t, "0a1b2c3d-0000-4000-8000-000000000000", byName["JOB_ID"])
	require.Equal(t, "https://github.com/x/y", byName["REPO_URL"])
	require.Equal(t, "main", byName["BRANCH"])
	require.Equal(t, "docs/PRD.md", byName["PRD_PATH"])
	require.Equal(t, "full-build", byName["MODE"])
	require.Equal(t, "https://orch.example", byName["ORCHESTRATOR_URL"])
	require.Equal(t, "s3cret", byName["WEBHOOK_SECRET"])
}

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
}

func TestCloudRunLaunchAcknowledge(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody runRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":     "projects/p/locations/r/operations/op-1",
			"metadata": map[string]any{"name": "projects/p/locations/r/jobs/prd-worker/executions/exec-42"},
		})
	}))
	defer srv.Close()

	l, err := NewCloudRun(t.Context(), "p", "r", "prd-worker", "https://orch.example", "s3cret",
		WithBaseURL(srv.URL), WithTokenSource(staticToken()))
	require.NoError(t, err)

	execID, err := l.Launch(t.Context(), testJob())
	require.NoError(t, err)
	require.Equal(t, "projects/p/locations/r/jobs/prd-worker/executions/exec-42", execID)
	require.Equal(t, "/v2/projects/p/locations/r/jobs/prd-worker:run", gotPath)
	require.Equal(t, "Bearer test-token", gotAuth)

	require.Len(t, gotBody.Overrides.ContainerOverrides, 1)
	env := gotBody.Overrides.ContainerOverrides[0].Env
	names := map[string]bool{}
	for _, v := range env {
		names[v.Name] = true
	}
	for _, want := range []string{"JOB_ID", "REPO_URL", "BRANCH", "PRD_PATH", "MODE", "ORCHESTRATOR_URL", "WEBHOOK_SECRET"} {
		require.Truef(t, names[want], "missing env var %s", want)
	}
}

func TestCloudRunLaunchRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"permission denied"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	l, err := NewCloudRun(t.Context(), "p", "r", "prd-worker", "https://orch.example", "s3cret",
		WithBaseURL(srv.URL), WithTokenSource(staticToken()))
	require.NoError(t, err)

	_, err = l.Launch(t.Context(), testJob())
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryLaunch))
}
