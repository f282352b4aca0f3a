package health

import "time"

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// StoreCheck creates a health check for the project store backend
func StoreCheck(pingFunc func() error) CheckFunc {
	return func() Check {
		check := Check{
			Name: "store",
		}

		if err := pingFunc(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Available"
		}

		return check
	}
}

// PolicyCheck creates a health check for the risk policy tables
func PolicyCheck(getPolicyState func() (loaded bool, source string)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "policy",
			Details: make(map[string]any),
		}

		loaded, source := getPolicyState()

		check.Details["source"] = source

		if !loaded {
			check.Status = StatusUnhealthy
			check.Message = "Risk policy not loaded"
		} else {
			check.Status = StatusHealthy
			check.Message = "Risk policy loaded"
		}

		return check
	}
}

// FeedCheck creates a health check for the recalculation event feed
func FeedCheck(getFeedState func() (subscribers int, wireEnabled, wireRunning bool)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "feed",
			Details: make(map[string]any),
		}

		subscribers, wireEnabled, wireRunning := getFeedState()

		check.Details["subscribers"] = subscribers
		check.Details["wire_enabled"] = wireEnabled
		check.Details["wire_running"] = wireRunning

		if !wireEnabled {
			// In-process delivery only
			check.Status = StatusHealthy
			check.Message = "Wire publishing disabled"
		} else if !wireRunning {
			check.Status = StatusDegraded
			check.Message = "Wire publisher not running"
		} else {
			check.Status = StatusHealthy
			check.Message = "Feed healthy"
		}

		return check
	}
}

// DiskSpaceCheck creates a health check for disk space
func DiskSpaceCheck(getUsage func() (used, total uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "disk_space",
			Details: make(map[string]any),
		}

		used, total := getUsage()

		usagePercent := float64(used) / float64(total) * 100

		check.Details["used_bytes"] = used
		check.Details["total_bytes"] = total
		check.Details["usage_percent"] = usagePercent

		if usagePercent > 95 {
			check.Status = StatusUnhealthy
			check.Message = "Critical disk space"
		} else if usagePercent > 80 {
			check.Status = StatusDegraded
			check.Message = "Low disk space"
		} else {
			check.Status = StatusHealthy
			check.Message = "Sufficient disk space"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		// Consider degraded if allocated memory > 80% of system memory
		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
