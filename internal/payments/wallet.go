package payments

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/techmall/storefront-api/internal/domain"
)

const walletDeclineReason = "Payment Failed or Insufficient Balance"

// WalletLogger receives gateway events.
type WalletLogger func(ctx context.Context, event string, fields map[string]any)

// WalletGatewayConfig configures the simulated mobile wallet gateway.
type WalletGatewayConfig struct {
	Latency     time.Duration
	SuccessRate float64
	Random      func() float64
	Clock       func() time.Time
	Logger      WalletLogger
}

// WalletGateway simulates the JazzCash and Easypaisa wallet APIs: it waits for the
// configured latency and approves a fraction of charges.
type WalletGateway struct {
	latency     time.Duration
	successRate float64
	random      func() float64
	clock       func() time.Time
	logger      WalletLogger
}

var _ Gateway = (*WalletGateway)(nil)

// NewWalletGateway validates cfg and builds the gateway.
func NewWalletGateway(cfg WalletGatewayConfig) (*WalletGateway, error) {
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		return nil, errors.New("wallet: success rate must be within [0, 1]")
	}
	if cfg.Latency < 0 {
		return nil, errors.New("wallet: latency must not be negative")
	}
	gw := &WalletGateway{
		latency:     cfg.Latency,
		successRate: cfg.SuccessRate,
		random:      cfg.Random,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
	if gw.random == nil {
		gw.random = rand.Float64
	}
	if gw.clock == nil {
		gw.clock = time.Now
	}
	if gw.logger == nil {
		gw.logger = func(context.Context, string, map[string]any) {}
	}
	return gw, nil
}

func (g *WalletGateway) Name() string { return "wallet" }

// Charge blocks for the simulated latency, honouring ctx, then approves or declines.
func (g *WalletGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if !req.Method.MobileWallet() {
		return ChargeResult{}, ErrUnsupportedMethod
	}
	account := strings.TrimSpace(req.PayerAccount)
	if account == "" {
		return ChargeResult{}, &DeclineError{Gateway: g.Name(), Reason: "mobile account is required"}
	}

	g.logger(ctx, "payments.wallet.charge.started", map[string]any{
		"method":    string(req.Method),
		"amount":    req.Amount,
		"account":   maskAccount(account),
		"reference": req.Reference,
	})

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	if g.random() >= g.successRate {
		g.logger(ctx, "payments.wallet.charge.declined", map[string]any{
			"method":    string(req.Method),
			"reference": req.Reference,
		})
		return ChargeResult{}, &DeclineError{Gateway: g.Name(), Reason: walletDeclineReason}
	}

	return ChargeResult{
		TransactionID: "TXN-" + ulid.Make().String(),
		Status:        domain.PaymentStatusCompleted,
		Message:       "Transaction Successful",
		SettledAt:     g.clock().UTC(),
	}, nil
}

func maskAccount(account string) string {
	if len(account) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
