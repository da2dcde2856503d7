// Package metrics exposes Prometheus counters for scoring runs and the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

var (
	AssetsScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_assets_scored_total",
			Help: "Total assets scored, by rating",
		},
		[]string{"rating"},
	)

	AssetsImportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_assets_imported_total",
			Help: "Total asset rows upserted by imports",
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_runs_total",
			Help: "Total import and recalculation runs, by kind and final status",
		},
		[]string{"kind", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"route", "code"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_api_latency_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// ObserveScores counts one scored asset per result.
func ObserveScores(results ...scoring.ScoreResult) {
	for _, r := range results {
		AssetsScoredTotal.WithLabelValues(string(r.Rating)).Inc()
	}
}

// ObserveRequest records one API request.
func ObserveRequest(route string, code int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	APILatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
