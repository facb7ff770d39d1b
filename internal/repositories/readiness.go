package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck describes a probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// ReadinessProbe runs dependency checks concurrently, each bounded by its own timeout.
type ReadinessProbe struct {
	checks []DependencyCheck
	now    func() time.Time
}

// NewReadinessProbe validates the check set. A nil clock defaults to time.Now.
func NewReadinessProbe(checks []DependencyCheck, clock func() time.Time) (*ReadinessProbe, error) {
	if len(checks) == 0 {
		return nil, errors.New("readiness probe: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" || check.Check == nil {
			return nil, errors.New("readiness probe: every check needs a name and function")
		}
	}
	if clock == nil {
		clock = time.Now
	}
	return &ReadinessProbe{checks: append([]DependencyCheck(nil), checks...), now: clock}, nil
}

// Collect runs every check and folds the results into one report.
func (p *ReadinessProbe) Collect(ctx context.Context) domain.ReadinessReport {
	results := make(map[string]domain.DependencyHealth, len(p.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range p.checks {
		wg.Add(1)
		go func(check DependencyCheck) {
			defer wg.Done()
			result := p.run(ctx, check)
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, result := range results {
		if result.Status == domain.HealthStatusError {
			status = domain.HealthStatusError
			break
		}
		if result.Status == domain.HealthStatusDegraded {
			status = domain.HealthStatusDegraded
		}
	}
	return domain.ReadinessReport{Status: status, Checks: results, GeneratedAt: p.now()}
}

func (p *ReadinessProbe) run(ctx context.Context, check DependencyCheck) domain.DependencyHealth {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = defaultDependencyTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := p.now()
	err := check.Check(checkCtx)
	end := p.now()

	result := domain.DependencyHealth{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   end.Sub(start),
		CheckedAt: end,
	}
	switch {
	case err == nil && checkCtx.Err() == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(checkCtx.Err(), context.DeadlineExceeded):
		result.Status = domain.HealthStatusError
		result.Detail = "timeout"
	case errors.Is(err, context.Canceled):
		result.Status = domain.HealthStatusError
		result.Detail = "cancelled"
	default:
		result.Status = domain.HealthStatusDegraded
		result.Detail = err.Error()
	}
	return result
}
