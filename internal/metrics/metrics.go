package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LatestRequestsTotal    prometheus.Counter
	HistoryRequestsTotal   prometheus.Counter
	AnalyticsRequestsTotal *prometheus.CounterVec

	SourceRequestsTotal   *prometheus.CounterVec
	SourceRequestDuration *prometheus.HistogramVec

	IngestionOutcomesTotal *prometheus.CounterVec
	IngestionCycleDuration prometheus.Histogram

	CacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. Tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		LatestRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "latest_rate_requests_total",
				Help: "Total number of latest rate requests",
			},
		),

		HistoryRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_requests_total",
				Help: "Total number of rate history requests",
			},
		),

		AnalyticsRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_requests_total",
				Help: "Total number of average and trend requests",
			},
			[]string{"kind"},
		),

		SourceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_source_requests_total",
				Help: "Outbound requests to the rate provider",
			},
			[]string{"endpoint", "outcome"},
		),

		SourceRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_source_request_duration_seconds",
				Help:    "Outbound rate provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		IngestionOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_outcomes_total",
				Help: "Per-currency ingestion results",
			},
			[]string{"currency", "result"},
		),

		IngestionCycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingestion_cycle_duration_seconds",
				Help:    "Duration of a full ingestion cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "latest_cache_lookups_total",
				Help: "Latest-rate cache lookups by result",
			},
			[]string{"result"},
		),
	}
}
