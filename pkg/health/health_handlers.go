package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the full health report. Degraded still answers 200
// so a flaky event feed never takes the analysis API out of rotation.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Check()

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeCheckResponse(w, status, response)
	}
}

// ReadinessHandler serves the readiness probe. Ready is binary: the
// store and policy checks must pass before traffic is admitted.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBinaryCheck(w, hc.CheckReadiness())
	}
}

// LivenessHandler serves the liveness probe
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBinaryCheck(w, hc.CheckLiveness())
	}
}

func writeBinaryCheck(w http.ResponseWriter, response Response) {
	status := http.StatusServiceUnavailable
	if response.Status == StatusHealthy {
		status = http.StatusOK
	}
	writeCheckResponse(w, status, response)
}

func writeCheckResponse(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
