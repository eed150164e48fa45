package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// decision engine
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_decisions_total",
		Help: "Live decisions taken, by action and pump recommendation",
	}, []string{"action", "pump"})

	DecisionsSkippedOverride = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_decisions_skipped_override_total",
		Help: "Live evaluations skipped because a manual override was active",
	})

	RecommendedLiters = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "irrigation_recommended_liters",
		Help:    "Total liters recommended per live decision",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 10),
	})

	// state
	SoilMoisturePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soil_moisture_percent",
		Help: "Last normalized soil moisture reading",
	})

	PumpOn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pump_on",
		Help: "1 when the pump is ON, 0 otherwise",
	})

	TelemetryIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_ingested_total",
		Help: "Telemetry readings ingested, by source",
	}, []string{"source"})

	// collaborators
	UpstreamFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_fallbacks_total",
		Help: "Collaborator calls answered with the fixed fallback value",
	}, []string{"upstream"})

	MQTTDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_duplicate_messages_total",
		Help: "MQTT redeliveries dropped by the deduper",
	})
)
