// Package metrics
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_fetch_duration_seconds",
			Help:    "Duration of single retrievals in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	FetchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_fetch_results_total",
			Help: "Total number of retrieval results, labeled by source kind and status.",
		},
		[]string{"kind", "status"},
	)
	InFlightFetches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_fetches_in_flight",
			Help: "Number of retrievals currently running.",
		},
	)
	DiscoveredLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_discovered_links_total",
			Help: "Total number of article links extracted from homepages, labeled by source.",
		},
		[]string{"source"},
	)
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_runs_total",
			Help: "Total number of pipeline runs, labeled by terminal state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(FetchResults)
	prometheus.MustRegister(InFlightFetches)
	prometheus.MustRegister(DiscoveredLinks)
	prometheus.MustRegister(Runs)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ExposeMetrics(addr string) {
	slog.Info("Exposing Prometheus metrics", "address", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Failed to start Prometheus metrics server", "error", err)
	}
}
