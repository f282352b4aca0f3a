package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRecalculationMetrics() {
	r.RecalculationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tara_recalculations_total",
			Help: "Total number of recalculation passes",
		},
		[]string{"trigger"},
	)

	r.RecalculationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tara_recalculation_duration_seconds",
			Help:    "Recalculation pass duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.RecalculationScenarios = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tara_recalculation_scenarios",
			Help:    "Number of threat scenarios evaluated per pass",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
	)

	r.RecalculationTreesEvaluated = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tara_recalculation_trees_evaluated_total",
			Help: "Total number of attack trees evaluated",
		},
	)

	r.RecalculationManualFallbacks = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tara_recalculation_manual_fallbacks_total",
			Help: "Total number of scenarios that kept their manual attack potential",
		},
	)

	r.RecalculationUnreachableTrees = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tara_recalculation_unreachable_trees_total",
			Help: "Total number of attack trees that resolved unreachable",
		},
	)

	r.RecalculationWarningsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tara_recalculation_warnings_total",
			Help: "Total number of recalculation warnings by code",
		},
		[]string{"code"},
	)

	r.SlowRecalculations = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "tara_slow_recalculations_total",
			Help: "Total number of slow recalculation passes (>1s)",
		},
	)

	r.RiskScenarios = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tara_risk_scenarios",
			Help: "Threat scenarios by derived risk level",
		},
		[]string{"level"},
	)
}
