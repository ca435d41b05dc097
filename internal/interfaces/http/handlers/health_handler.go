package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is a dependency probed by the readiness endpoint.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthReporter receives each probe outcome, e.g. to export a gauge.
type HealthReporter interface {
	SetHealth(component string, up bool)
}

type HealthHandler struct {
	checkers []HealthChecker
	reporter HealthReporter
	version  string
	timeout  time.Duration
	startAt  time.Time
}

// NewHealthHandler builds the probe handler. reporter may be nil.
func NewHealthHandler(version string, reporter HealthReporter, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		reporter: reporter,
		version:  version,
		timeout:  5 * time.Second,
		startAt:  time.Now(),
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It never touches dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz: 200 when every checker passes, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	components, ready := h.probe(ctx)
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Components: components})
		return
	}
	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Components: components})
}

type probeResult struct {
	name  string
	check ComponentCheck
	up    bool
}

// probe runs every checker concurrently; ready is false if any failed.
func (h *HealthHandler) probe(ctx context.Context) (map[string]ComponentCheck, bool) {
	out := make(chan probeResult, len(h.checkers))
	for _, c := range h.checkers {
		go func(c HealthChecker) {
			start := time.Now()
			err := c.Check(ctx)
			res := probeResult{name: c.Name(), up: err == nil}
			res.check.Latency = time.Since(start).Truncate(time.Microsecond).String()
			if err != nil {
				res.check.Status, res.check.Error = "unhealthy", err.Error()
			} else {
				res.check.Status = "healthy"
			}
			out <- res
		}(c)
	}

	components := make(map[string]ComponentCheck, len(h.checkers))
	ready := true
	for range h.checkers {
		res := <-out
		components[res.name] = res.check
		ready = ready && res.up
		if h.reporter != nil {
			h.reporter.SetHealth(res.name, res.up)
		}
	}
	return components, ready
}
