// Package metrics exposes Prometheus collectors for the crawl service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	productsTotal        *prometheus.CounterVec
	fetchAttemptsTotal   *prometheus.CounterVec
	fetchDurationSeconds prometheus.Histogram
	activeWorkers        prometheus.Gauge
	runsTotal            *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		productsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricescout_products_total",
				Help: "Total number of products processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricescout_fetch_attempts_total",
				Help: "Total number of page fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricescout_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pricescout_active_workers",
				Help: "Number of workers currently processing a product task.",
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricescout_runs_total",
				Help: "Total number of crawl runs, labeled by final status.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProduct increments the product counter for the given outcome
// (ok, task_error, all_error, cancelled).
func ObserveProduct(outcome string) {
	if productsTotal != nil {
		productsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetchAttempt records one fetch attempt result (ok, retryable, fatal).
func ObserveFetchAttempt(result string, duration time.Duration) {
	if fetchAttemptsTotal != nil {
		fetchAttemptsTotal.WithLabelValues(result).Inc()
	}
	if fetchDurationSeconds != nil {
		fetchDurationSeconds.Observe(duration.Seconds())
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}

// ObserveRun increments the run counter for the given final status.
func ObserveRun(status string) {
	if runsTotal != nil {
		runsTotal.WithLabelValues(status).Inc()
	}
}
