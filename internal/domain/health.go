package domain

import "time"

// HealthStatus summarises a dependency probe outcome.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// DependencyHealth is the result of probing one backing service.
type DependencyHealth struct {
	Status    HealthStatus
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// ReadinessReport aggregates dependency probes for /readyz.
type ReadinessReport struct {
	Status      HealthStatus
	Checks      map[string]DependencyHealth
	GeneratedAt time.Time
}
