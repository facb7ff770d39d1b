package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/httpx"
)

// ReadinessCollector runs dependency probes. repositories.ReadinessProbe satisfies it.
type ReadinessCollector interface {
	Collect(ctx context.Context) domain.ReadinessReport
}

// HealthHandlers serve /healthz and /readyz.
type HealthHandlers struct {
	probe     ReadinessCollector
	version   string
	startedAt time.Time
	now       func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthClock overrides the clock used for uptime and timestamps.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithHealthVersion reports the build version on /healthz.
func WithHealthVersion(version string) HealthOption {
	return func(h *HealthHandlers) {
		h.version = version
	}
}

// WithHealthStartedAt sets the process start used for uptime.
func WithHealthStartedAt(t time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.startedAt = t
	}
}

// NewHealthHandlers builds the handlers. A nil probe makes /readyz mirror /healthz.
func NewHealthHandlers(probe ReadinessCollector, opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{probe: probe, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.startedAt.IsZero() {
		h.startedAt = h.now()
	}
	return h
}

type healthResponse struct {
	Status    domain.HealthStatus `json:"status"`
	Version   string              `json:"version,omitempty"`
	Uptime    string              `json:"uptime"`
	Timestamp string              `json:"timestamp"`
}

type dependencyPayload struct {
	Name      string              `json:"name"`
	Status    domain.HealthStatus `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	LatencyMS int64               `json:"latencyMs"`
	CheckedAt string              `json:"checkedAt,omitempty"`
}

type readinessResponse struct {
	Status       domain.HealthStatus `json:"status"`
	Dependencies []dependencyPayload `json:"dependencies"`
	GeneratedAt  string              `json:"generatedAt"`
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    domain.HealthStatusOK,
		Version:   h.version,
		Uptime:    now.Sub(h.startedAt).Truncate(time.Second).String(),
		Timestamp: formatTime(now),
	})
}

// Readyz probes backing services. Anything other than ok answers 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		h.Healthz(w, r)
		return
	}

	report := h.probe.Collect(r.Context())
	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]dependencyPayload, 0, len(names))
	for _, name := range names {
		check := report.Checks[name]
		deps = append(deps, dependencyPayload{
			Name:      name,
			Status:    check.Status,
			Detail:    check.Detail,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		})
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = h.now()
	}
	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, readinessResponse{
		Status:       report.Status,
		Dependencies: deps,
		GeneratedAt:  formatTime(generated),
	})
}
