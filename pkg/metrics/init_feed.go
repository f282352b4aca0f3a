package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFeedMetrics() {
	r.FeedEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tara_feed_events_total",
			Help: "Total number of recalculation events published",
		},
		[]string{"transport", "status"},
	)

	r.FeedSubscribers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "tara_feed_subscribers",
			Help: "Current number of in-process feed subscribers",
		},
	)
}
