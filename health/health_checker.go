// Package health reports whether the published code table is fresh.
package health

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openqsrx/qumi-codes/interfaces"
)

// Thresholds on the age of the last successful run
const (
	DegradedAge  = 24 * time.Hour
	UnhealthyAge = 48 * time.Hour
	SlowRunAge   = 6 * time.Hour
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore     interfaces.DataStore
	scheduleTimes []time.Duration // offsets from midnight, sorted
	now           func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies.
// scheduleTimes is the SCHEDULE_TIMES value, e.g. "06:00;18:00".
func NewHealthChecker(dataStore interfaces.DataStore, scheduleTimes string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:     dataStore,
		scheduleTimes: parseScheduleTimes(scheduleTimes),
		now:           time.Now,
	}
}

func parseScheduleTimes(times string) []time.Duration {
	var offsets []time.Duration
	for _, t := range strings.Split(times, ";") {
		parsed, err := time.Parse("15:04", strings.TrimSpace(t))
		if err != nil {
			continue
		}
		offsets = append(offsets, time.Duration(parsed.Hour())*time.Hour+time.Duration(parsed.Minute())*time.Minute)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

// HealthCheck returns HTTP-specific health data. Used by the /health endpoint.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	rows := h.dataStore.GetRows()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	lastErr := h.dataStore.GetLastError()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case len(rows) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > UnhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > DegradedAge, lastErr != nil:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > SlowRunAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"run_id":         h.dataStore.GetRunID(),
		"rows":           len(rows),
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"is_updating":    isUpdating,
	}
	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}
	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(h.now().Sub(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled regeneration time, or the zero
// time when no schedule is configured
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if len(h.scheduleTimes) == 0 {
		return time.Time{}
	}

	now := h.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, offset := range h.scheduleTimes {
		if next := midnight.Add(offset); next.After(now) {
			return next
		}
	}

	// Every slot today has passed: first slot tomorrow
	return midnight.AddDate(0, 0, 1).Add(h.scheduleTimes[0])
}
