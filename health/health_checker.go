// Package health reports on the reference data, the configured generator and
// any external dependencies of the service.
package health

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultStaleAfter is the data age past which the service reports degraded.
const DefaultStaleAfter = 24 * time.Hour

// Check probes one external dependency.
type Check func(ctx context.Context) error

// Options wires a HealthCheckerImpl. Only Store is required.
type Options struct {
	Store      interfaces.ReferenceStore
	Generator  interfaces.Generator
	NextReload func() time.Time
	StaleAfter time.Duration
	Checks     map[string]Check
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store      interfaces.ReferenceStore
	generator  interfaces.Generator
	nextReload func() time.Time
	staleAfter time.Duration
	checks     map[string]Check
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(opts Options) interfaces.HealthChecker {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &HealthCheckerImpl{
		store:      opts.Store,
		generator:  opts.Generator,
		nextReload: opts.NextReload,
		staleAfter: opts.StaleAfter,
		checks:     opts.Checks,
	}
}

// HealthCheck returns the status, the details and the HTTP status to serve.
// No drugs loaded is unhealthy. Stale data, an empty interaction table or a
// failing dependency is degraded.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	snap := h.store.Snapshot()
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()
	dataAge := time.Since(lastUpdate)
	deps, depsFailed := h.runChecks(ctx)

	switch {
	case len(snap.Drugs) == 0:
		status, httpStatus = StatusUnhealthy, http.StatusServiceUnavailable
	case dataAge > h.staleAfter, len(snap.Interactions) == 0, depsFailed:
		status, httpStatus = StatusDegraded, http.StatusOK
	default:
		status, httpStatus = StatusHealthy, http.StatusOK
	}

	uptime := time.Since(h.store.GetServerStartTime())
	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"drugs":          len(snap.Drugs),
		"interactions":   len(snap.Interactions),
		"is_updating":    isUpdating,
		"uptime_seconds": math.Round(uptime.Seconds()),
		"uptime":         FormatUptime(uptime),
		"system":         systemStats(),
	}
	if h.generator != nil {
		data["generator"] = h.generator.Name()
	}
	if h.nextReload != nil {
		if next := h.nextReload(); !next.IsZero() {
			data["next_reload"] = next.Format(time.RFC3339)
		}
	}
	if len(deps) > 0 {
		data["dependencies"] = deps
	}

	return status, data, httpStatus
}

func (h *HealthCheckerImpl) runChecks(ctx context.Context) (map[string]string, bool) {
	if len(h.checks) == 0 {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	failed := false
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = "error: " + err.Error()
			failed = true
			continue
		}
		results[name] = "ok"
	}
	return results, failed
}

func systemStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       int(m.Alloc / 1024 / 1024),
			"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
			"sys_mb":         int(m.Sys / 1024 / 1024),
			"num_gc":         m.NumGC,
		},
	}
}

// FormatUptime formats a duration as e.g. "2d 3h 4m 5s".
func FormatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
