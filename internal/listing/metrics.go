package listing

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msrv_listing_resolutions_total",
			Help: "Number of package requirement resolutions by source.",
		},
		[]string{"source"},
	)

	packagesVisited = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "msrv_listing_packages_visited",
			Help: "Number of packages visited by the last traversal.",
		},
	)

	packagesUnresolved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "msrv_listing_packages_unresolved",
			Help: "Number of packages without a known requirement in the last traversal.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		resolutionsTotal,
		packagesVisited,
		packagesUnresolved,
	)
}
