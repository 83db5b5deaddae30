// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Processing metrics
	EventsProcessed        *prometheus.CounterVec
	EventProcessingErrors  *prometheus.CounterVec
	EventsSkipped          *prometheus.CounterVec
	OutOfOrderEvents       prometheus.Counter
	EventProcessingLatency *prometheus.HistogramVec
	LastProcessedBlock     prometheus.Gauge

	// Pricing metrics
	EthPriceUSD     prometheus.Gauge
	EntityNotFound  *prometheus.CounterVec
	DivisionGuards  *prometheus.CounterVec
	PriceRefreshes  *prometheus.CounterVec
	ZeroPricedToken prometheus.Counter

	// Ledger metrics
	LedgerEventsRecorded *prometheus.CounterVec
	LedgerCollisions     prometheus.Counter
	NegativeBalances     prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulEvent prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dex_pricing"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Processing metrics
		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "events_processed_total",
			Help:      "Total number of pool events processed by type",
		}, []string{"event_type"}),
		EventProcessingErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by type",
		}, []string{"event_type", "error_type"}),
		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_skipped_total",
			Help:      "Total number of inbound events skipped by reason",
		}, []string{"reason"}),
		OutOfOrderEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_out_of_order_total",
			Help:      "Total number of events delivered behind an already processed position",
		}),
		EventProcessingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "event_processing_latency_seconds",
			Help:      "Event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		LastProcessedBlock: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "last_processed_block",
			Help:      "Block number of the last processed event",
		}),

		// Pricing metrics
		EthPriceUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "eth_price_usd",
			Help:      "Current ETH/USD reference price held in the bundle",
		}),
		EntityNotFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "entity_not_found_total",
			Help:      "Total number of missing token/pool/bundle records by kind",
		}, []string{"kind"}),
		DivisionGuards: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "division_guard_total",
			Help:      "Total number of zero denominators replaced with a zero result",
		}, []string{"site"}),
		PriceRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "price_refreshes_total",
			Help:      "Total number of price refreshes by target",
		}, []string{"target"}),
		ZeroPricedToken: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "zero_priced_tokens_total",
			Help:      "Total number of token refreshes that found no qualifying pool",
		}),

		// Ledger metrics
		LedgerEventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_recorded_total",
			Help:      "Total number of liquidity changes recorded by direction",
		}, []string{"direction"}),
		LedgerCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "event_collisions_total",
			Help:      "Total number of ledger events that overwrote an existing record",
		}),
		NegativeBalances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "negative_balance_updates_total",
			Help:      "Total number of ledger updates leaving a negative balance",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulEvent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_event_timestamp",
			Help:      "Unix timestamp of the last successfully processed event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewIsolatedMetrics returns metrics bound to a private registry.
// Used by tests and by components constructed without metrics.
func NewIsolatedMetrics() *Metrics {
	return NewMetrics("", prometheus.NewRegistry())
}

// OrIsolated returns m, or isolated metrics when m is nil.
func OrIsolated(m *Metrics) *Metrics {
	if m == nil {
		return NewIsolatedMetrics()
	}
	return m
}

// RecordEventProcessed records a processed event and its latency.
func (m *Metrics) RecordEventProcessed(eventType string, seconds float64) {
	m.EventsProcessed.WithLabelValues(eventType).Inc()
	m.EventProcessingLatency.WithLabelValues(eventType).Observe(seconds)
}

// RecordEventError records an event processing error.
func (m *Metrics) RecordEventError(eventType, errorType string) {
	m.EventProcessingErrors.WithLabelValues(eventType, errorType).Inc()
}

// RecordEntityNotFound records a missing entity lookup.
func (m *Metrics) RecordEntityNotFound(kind string) {
	m.EntityNotFound.WithLabelValues(kind).Inc()
}

// RecordDivisionGuard records a zero denominator at site.
func (m *Metrics) RecordDivisionGuard(site string) {
	m.DivisionGuards.WithLabelValues(site).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
