package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	JobsCreated.Inc()
	JobsLaunched.Inc()
	RunningJobs.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "prdflow_jobs_created_total")
	require.Contains(t, body, "prdflow_jobs_launched_total")
	require.Contains(t, body, "prdflow_running_jobs 3")
	require.Contains(t, body, "go_goroutines")
}
