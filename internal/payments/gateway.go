package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
)

const defaultChargeTimeout = 10 * time.Second

var (
	// ErrUnsupportedMethod is returned when no gateway is registered for the payment method.
	ErrUnsupportedMethod = errors.New("payments: unsupported payment method")
	// ErrDeclined marks a charge refused by the gateway. The wrapping DeclineError carries
	// the customer-facing reason.
	ErrDeclined = errors.New("payments: declined")
	// ErrTimeout marks a charge that did not settle within the configured window.
	ErrTimeout = errors.New("payments: gateway timeout")
)

// ChargeRequest describes a single synchronous charge.
type ChargeRequest struct {
	Method       domain.PaymentMethod
	Amount       int64
	Currency     string
	PayerAccount string
	Reference    string
}

// ChargeResult is returned for a settled charge.
type ChargeResult struct {
	TransactionID string
	Status        string
	Message       string
	SettledAt     time.Time
}

// Gateway settles charges for one or more payment methods.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// DeclineError reports a charge the gateway refused.
type DeclineError struct {
	Gateway string
	Reason  string
	Err     error
}

func (e *DeclineError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

func (e *DeclineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrDeclined) match every DeclineError.
func (e *DeclineError) Is(target error) bool {
	return target == ErrDeclined
}

// Observer records the outcome and latency of each charge.
type Observer func(gateway, outcome string, elapsed time.Duration)

// Manager routes charges to the gateway registered for the payment method and bounds each
// attempt with a timeout. Charges are never retried.
type Manager struct {
	gateways map[domain.PaymentMethod]Gateway
	timeout  time.Duration
	observe  Observer
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds every charge.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithObserver installs a charge observer, typically the Prometheus recorder.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer != nil {
			m.observe = observer
		}
	}
}

// NewManager constructs a Manager over the supplied method routes.
func NewManager(gateways map[domain.PaymentMethod]Gateway, opts ...ManagerOption) (*Manager, error) {
	if len(gateways) == 0 {
		return nil, errors.New("payments: at least one gateway is required")
	}
	routes := make(map[domain.PaymentMethod]Gateway, len(gateways))
	for method, gw := range gateways {
		if gw == nil {
			return nil, fmt.Errorf("payments: nil gateway registered for %q", method)
		}
		if method.Deferred() {
			return nil, fmt.Errorf("payments: %s is settled on delivery and takes no gateway", method)
		}
		routes[method] = gw
	}
	m := &Manager{
		gateways: routes,
		timeout:  defaultChargeTimeout,
		observe:  func(string, string, time.Duration) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Supports reports whether a gateway is registered for method.
func (m *Manager) Supports(method domain.PaymentMethod) bool {
	if m == nil {
		return false
	}
	_, ok := m.gateways[method]
	return ok
}

// Charge settles req on its gateway. A gateway that outlives the timeout yields ErrTimeout.
func (m *Manager) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if m == nil {
		return ChargeResult{}, errors.New("payments: manager is nil")
	}
	gw, ok := m.gateways[req.Method]
	if !ok {
		return ChargeResult{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
	if req.Amount <= 0 {
		return ChargeResult{}, fmt.Errorf("payments: amount must be positive, got %d", req.Amount)
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = domain.Currency
	}

	chargeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	started := time.Now()
	result, err := gw.Charge(chargeCtx, req)
	elapsed := time.Since(started)
	if err != nil {
		if errors.Is(chargeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			m.observe(gw.Name(), "timeout", elapsed)
			return ChargeResult{}, fmt.Errorf("%w after %s", ErrTimeout, m.timeout)
		}
		outcome := "declined"
		if errors.Is(err, ErrGatewayUnavailable) {
			outcome = "unavailable"
		}
		m.observe(gw.Name(), outcome, elapsed)
		return ChargeResult{}, err
	}
	m.observe(gw.Name(), "succeeded", elapsed)
	return result, nil
}
