package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	statusOK        = "ok"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"

	healthCheckTimeout = 3 * time.Second
)

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves the liveness, readiness and full health probes.
// Readiness runs the readiness checks; /health runs those plus the extended
// ones (storage, memory, disk). Failure details are logged, never returned:
// the probes are unauthenticated.
type HealthHandler struct {
	readiness []HealthCheck
	extended  []HealthCheck
	log       zerolog.Logger
}

func NewHealthHandler(log zerolog.Logger, readiness []HealthCheck, extended []HealthCheck) *HealthHandler {
	return &HealthHandler{readiness: readiness, extended: extended, log: log}
}

type dependencyStatus struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies,omitempty"`
}

// Liveness handles GET /health/liveness. It confirms the process is alive.
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: statusOK})
}

// Readiness handles GET /health/readiness.
func (h *HealthHandler) Readiness(c echo.Context) error {
	return h.run(c, h.readiness)
}

// Health handles GET /health.
func (h *HealthHandler) Health(c echo.Context) error {
	checks := make([]HealthCheck, 0, len(h.readiness)+len(h.extended))
	checks = append(checks, h.readiness...)
	checks = append(checks, h.extended...)
	return h.run(c, checks)
}

func (h *HealthHandler) run(c echo.Context, checks []HealthCheck) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(checks))
	healthy := true

	for _, hc := range checks {
		if err := hc.Check(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", hc.Name).Msg("health check failed")
			deps[hc.Name] = dependencyStatus{Status: statusUnhealthy}
			healthy = false
			continue
		}
		deps[hc.Name] = dependencyStatus{Status: statusOK}
	}

	status := statusOK
	httpStatus := http.StatusOK
	if !healthy {
		status = statusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, healthResponse{
		Status:       status,
		Dependencies: deps,
	})
}

// HeapCheck fails when the live heap exceeds limit bytes.
func HeapCheck(limit uint64) HealthCheck {
	return HealthCheck{
		Name: "memory_heap",
		Check: func(context.Context) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			if ms.HeapAlloc > limit {
				return fmt.Errorf("heap %d bytes exceeds limit of %d bytes", ms.HeapAlloc, limit)
			}
			return nil
		},
	}
}

// DiskCheck fails when the filesystem holding path is fuller than threshold
// (a fraction between 0 and 1).
func DiskCheck(path string, threshold float64) HealthCheck {
	return HealthCheck{
		Name: "disk",
		Check: func(context.Context) error {
			used, err := diskUsage(path)
			if err != nil {
				return err
			}
			if used > threshold {
				return fmt.Errorf("disk usage %.1f%% exceeds %.0f%%", used*100, threshold*100)
			}
			return nil
		},
	}
}
