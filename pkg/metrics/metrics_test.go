package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsExposure(t *testing.T) {
	ObserveRequest("/1.1/friends/ids.json", 200, time.Now().Add(-150*time.Millisecond))
	IncRateLimitWait("/1.1/friends/ids.json")
	ObserveScan("complete", time.Now().Add(-time.Minute))
	AddProfiles(3)
	IncUnfollow("dry_run")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, m := range []string{
		"followscope_requests_total",
		"followscope_request_duration_seconds",
		"followscope_rate_limit_waits_total",
		"followscope_scan_runs_total",
		"followscope_profiles_hydrated_total",
		"followscope_unfollows_total",
	} {
		assert.True(t, strings.Contains(body, m), "expected metric %s in body", m)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Unfollows.WithLabelValues("success"))
	IncUnfollow("success")
	IncUnfollow("success")
	assert.Equal(t, before+2, testutil.ToFloat64(Unfollows.WithLabelValues("success")))

	beforeReq := testutil.ToFloat64(Requests.WithLabelValues("/1.1/friendships/destroy.json", "429"))
	ObserveRequest("/1.1/friendships/destroy.json", 429, time.Now())
	assert.Equal(t, beforeReq+1, testutil.ToFloat64(Requests.WithLabelValues("/1.1/friendships/destroy.json", "429")))
}
