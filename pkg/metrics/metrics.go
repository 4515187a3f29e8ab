package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordWrites counts persisted generation records by result (success|failure).
	RecordWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsgallery_record_writes_total",
			Help: "Total number of record write attempts",
		},
		[]string{"result"},
	)

	// RecordSearches counts search executions by result (success|failure).
	RecordSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsgallery_record_searches_total",
			Help: "Total number of record searches",
		},
		[]string{"result"},
	)

	// RecordDeletes counts record deletions by result (success|failure).
	RecordDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsgallery_record_deletes_total",
			Help: "Total number of record deletions",
		},
		[]string{"result"},
	)

	// PrunedRecords counts rows removed because their image file went missing.
	PrunedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tsgallery_pruned_records_total",
			Help: "Total number of records pruned for missing images",
		},
	)

	// GallerySessions tracks open gallery sessions.
	GallerySessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsgallery_gallery_sessions",
			Help: "Number of open gallery sessions",
		},
	)

	// StoreLatency measures storage backend operation latencies.
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsgallery_store_latency_seconds",
			Help:    "Storage operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// APILatency measures HTTP request latencies by route template.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsgallery_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// HTTPInFlight tracks requests currently being served.
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsgallery_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)
