package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrGatewayUnavailable is returned without contacting the gateway while its circuit is open.
var ErrGatewayUnavailable = errors.New("payments: gateway temporarily unavailable")

// BreakerConfig configures BreakerGateway.
type BreakerConfig struct {
	// Failures is the number of consecutive gateway faults that opens the circuit.
	Failures      uint32
	// Cooldown is how long the circuit stays open before a single probe charge is let through.
	Cooldown      time.Duration
	OnStateChange func(gateway string, from, to string)
}

// BreakerGateway stops sending charges to a gateway that keeps failing. Declines and
// caller cancellations are answers from a healthy gateway and never trip it.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[ChargeResult]
}

var _ Gateway = (*BreakerGateway)(nil)

// NewBreakerGateway wraps next. It returns an error when Failures is zero.
func NewBreakerGateway(next Gateway, cfg BreakerConfig) (*BreakerGateway, error) {
	if next == nil {
		return nil, errors.New("payments: breaker requires a gateway")
	}
	if cfg.Failures == 0 {
		return nil, errors.New("payments: breaker failure threshold must be positive")
	}
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined) || errors.Is(err, context.Canceled)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return &BreakerGateway{next: next, cb: gobreaker.NewCircuitBreaker[ChargeResult](settings)}, nil
}

func (g *BreakerGateway) Name() string { return g.next.Name() }

func (g *BreakerGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	result, err := g.cb.Execute(func() (ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ChargeResult{}, fmt.Errorf("%w: %s", ErrGatewayUnavailable, g.next.Name())
	}
	return result, err
}
