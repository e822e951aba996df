package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Events accepted by the tracker, by event name
	EventsTracked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketing_events_tracked_total",
		Help: "Analytics events accepted by the tracker",
	}, []string{"event"})

	// Events dropped because the tracker queue was full or closed
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marketing_events_dropped_total",
		Help: "Analytics events dropped before reaching a sink",
	})

	SinkFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketing_sink_failures_total",
		Help: "Failed batch deliveries, by sink",
	}, []string{"sink"})

	// UTM touches written to the attribution store, by touch type
	UTMTouches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketing_utm_touches_total",
		Help: "UTM touches stored, by touch type",
	}, []string{"touch"})

	UTMValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketing_utm_validation_failures_total",
		Help: "UTM validation failures, by field",
	}, []string{"field"})

	ROICalculations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketing_roi_calculations_total",
		Help: "ROI calculator runs, by whether payback is reachable",
	}, []string{"payback_reachable"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketing_http_request_duration_seconds",
		Help:    "Latency of API handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			EventsTracked,
			EventsDropped,
			SinkFailures,
			UTMTouches,
			UTMValidationFailures,
			ROICalculations,
			HTTPRequestDuration,
		)
	})
}
