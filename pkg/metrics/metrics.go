// Package metrics exposes Prometheus collectors for upstream requests,
// harvest runs and unfollow outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followscope_requests_total",
		Help: "Upstream API requests by endpoint and status code",
	}, []string{"endpoint", "code"})
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "followscope_request_duration_seconds",
		Help:    "Upstream API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	RateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followscope_rate_limit_waits_total",
		Help: "Backoff waits after HTTP 429, by endpoint",
	}, []string{"endpoint"})
	ScanRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followscope_scan_runs_total",
		Help: "Full scans by outcome (complete, cancelled, error)",
	}, []string{"outcome"})
	ProfilesHydrated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "followscope_profiles_hydrated_total",
		Help: "Profiles flushed to the batch sink, placeholders included",
	})
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "followscope_scan_duration_seconds",
		Help:    "Full scan wall time",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200},
	})
	Unfollows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "followscope_unfollows_total",
		Help: "Unfollow attempts by result (success, failed, dry_run)",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(Requests, RequestDuration, RateLimitWaits, ScanRuns, ProfilesHydrated, ScanDuration, Unfollows)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one upstream request. Status 0 means no response.
func ObserveRequest(endpoint string, status int, start time.Time) {
	Requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncRateLimitWait counts a 429 backoff for endpoint
func IncRateLimitWait(endpoint string) { RateLimitWaits.WithLabelValues(endpoint).Inc() }

// ObserveScan records a finished scan
func ObserveScan(outcome string, start time.Time) {
	ScanRuns.WithLabelValues(outcome).Inc()
	ScanDuration.Observe(time.Since(start).Seconds())
}

// AddProfiles counts profiles delivered to the batch sink
func AddProfiles(n int) { ProfilesHydrated.Add(float64(n)) }

// IncUnfollow counts one unfollow outcome
func IncUnfollow(result string) { Unfollows.WithLabelValues(result).Inc() }
