package diagnostics

import (
	"time"

	"github.com/customeros/mailsync/internal/enum"
)

const (
	errorThresholdCritical = 5
	staleHoursCritical     = 24
	staleHoursWarning      = 6
)

// EvaluateHealth classifies an account or folder from its sync recency and recent error count.
// A nil lastSync is treated as 24 hours stale.
func EvaluateHealth(lastSync *time.Time, errorCount, syncedCount int, now time.Time) enum.HealthStatus {
	hoursSinceSync := float64(staleHoursCritical)
	if lastSync != nil {
		hoursSinceSync = now.Sub(*lastSync).Hours()
	}

	switch {
	case errorCount > errorThresholdCritical || hoursSinceSync > staleHoursCritical:
		return enum.HealthError
	case errorCount > 0 || hoursSinceSync > staleHoursWarning:
		return enum.HealthWarning
	default:
		return enum.HealthHealthy
	}
}
