// Package metrics defines the prometheus collectors for ingestion and the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trendspotter_upstream_request_duration_seconds",
		Help:    "Duration of calls to the upstream trend source.",
		Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"provider", "status"})

	UpstreamRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendspotter_upstream_retries_total",
		Help: "Upstream calls retried after a rate limit response.",
	}, []string{"provider"})

	RecordsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendspotter_records_rejected_total",
		Help: "Upstream records skipped, by the field that failed validation.",
	}, []string{"field"})

	CategoryIngestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendspotter_category_ingestions_total",
		Help: "Category ingestions, by outcome.",
	}, []string{"category", "outcome"})

	TrendsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendspotter_trends_stored_total",
		Help: "Trends inserted or updated by ingestion passes.",
	})

	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trendspotter_pass_duration_seconds",
		Help:    "Duration of full ingestion passes.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 8),
	})

	LastPassCompleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trendspotter_last_pass_completed_timestamp_seconds",
		Help: "Unix time the last ingestion pass completed.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendspotter_http_requests_total",
		Help: "HTTP requests served, by method and status code.",
	}, []string{"method", "code"})

	TrendsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendspotter_trends_cache_lookups_total",
		Help: "Trend listing cache lookups, by result.",
	}, []string{"result"})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpstreamRequestDuration,
		UpstreamRetries,
		RecordsRejected,
		CategoryIngestions,
		TrendsStored,
		PassDuration,
		LastPassCompleted,
		HTTPRequests,
		TrendsCacheLookups,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one call to the upstream source.
func ObserveUpstream(provider string, start time.Time, statusCode int) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	UpstreamRequestDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
}
