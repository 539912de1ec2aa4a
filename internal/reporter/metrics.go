package reporter

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msrv_reporter_events_published_total",
			Help: "Number of events published by message type.",
		},
		[]string{"type"},
	)
	eventsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msrv_reporter_events_delivered_total",
			Help: "Number of events handled successfully by sink.",
		},
		[]string{"sink"},
	)
	eventsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msrv_reporter_events_failed_total",
			Help: "Number of events a sink failed to handle.",
		},
		[]string{"sink"},
	)
	eventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msrv_reporter_events_dropped_total",
			Help: "Number of queued events skipped because their sink had already failed.",
		},
		[]string{"sink"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		eventsPublishedTotal,
		eventsDeliveredTotal,
		eventsFailedTotal,
		eventsDroppedTotal,
	)
}
