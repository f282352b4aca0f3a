package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight increments the in-flight request gauge
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight request gauge
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordRecalculation records a completed recalculation pass
func (r *Registry) RecordRecalculation(trigger string, duration time.Duration, scenarios, trees, fallbacks, unreachable int) {
	r.RecalculationsTotal.WithLabelValues(trigger).Inc()
	r.RecalculationDuration.Observe(duration.Seconds())
	r.RecalculationScenarios.Observe(float64(scenarios))
	r.RecalculationTreesEvaluated.Add(float64(trees))
	r.RecalculationManualFallbacks.Add(float64(fallbacks))
	r.RecalculationUnreachableTrees.Add(float64(unreachable))

	if duration > time.Second {
		r.SlowRecalculations.Inc()
	}
}

// RecordRecalculationWarnings records per-code warning counts from a pass
func (r *Registry) RecordRecalculationWarnings(counts map[string]int) {
	for code, n := range counts {
		r.RecalculationWarningsTotal.WithLabelValues(code).Add(float64(n))
	}
}

var riskLevels = []string{"very_low", "low", "medium", "high", "critical"}

// SetRiskDistribution replaces the per-level scenario gauges with the
// distribution of a freshly recalculated project
func (r *Registry) SetRiskDistribution(byLevel map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reset all levels
	for _, level := range riskLevels {
		r.RiskScenarios.WithLabelValues(level).Set(0)
	}

	for level, n := range byLevel {
		r.RiskScenarios.WithLabelValues(level).Set(float64(n))
	}
}

// RecordStoreOperation records a store operation
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFeedPublish records one published recalculation event
func (r *Registry) RecordFeedPublish(transport, status string) {
	r.FeedEventsTotal.WithLabelValues(transport, status).Inc()
}
