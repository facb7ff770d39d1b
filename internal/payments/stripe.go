package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	domain "github.com/techmall/storefront-api/internal/domain"
)

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clock    func() time.Time
	intents  stripePaymentIntentAPI
}

// StripeGateway settles Card payments by creating and confirming a PaymentIntent against the
// payment method id supplied by the storefront.
type StripeGateway struct {
	intents stripePaymentIntentAPI
	clock   func() time.Time
	logger  StripeLogger
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway constructs a Stripe-backed card gateway.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	intents := cfg.intents
	if intents == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		intents = client.New(apiKey, cfg.Backends).PaymentIntents
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StripeGateway{intents: intents, clock: clock, logger: logger}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// Charge confirms the PaymentIntent immediately. Redirect-based methods are disabled, so
// anything other than "succeeded" is treated as a decline.
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Method != domain.PaymentMethodCard {
		return ChargeResult{}, ErrUnsupportedMethod
	}
	pm := strings.TrimSpace(req.PayerAccount)
	if pm == "" {
		return ChargeResult{}, &DeclineError{Gateway: g.Name(), Reason: "card payment method is required"}
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(pm),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		params.SetIdempotencyKey("charge-" + ref)
		params.AddMetadata("reference", ref)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			g.logger(ctx, "payments.stripe.charge.declined", map[string]any{
				"reference": req.Reference,
				"code":      string(stripeErr.Code),
			})
			return ChargeResult{}, &DeclineError{Gateway: g.Name(), Reason: stripeErr.Msg, Err: err}
		}
		return ChargeResult{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		g.logger(ctx, "payments.stripe.charge.incomplete", map[string]any{
			"reference":     req.Reference,
			"paymentIntent": intent.ID,
			"status":        string(intent.Status),
		})
		return ChargeResult{}, &DeclineError{Gateway: g.Name(), Reason: fmt.Sprintf("card payment %s", intent.Status)}
	}

	return ChargeResult{
		TransactionID: intent.ID,
		Status:        domain.PaymentStatusCompleted,
		Message:       "Card payment captured",
		SettledAt:     g.clock().UTC(),
	}, nil
}

// minorUnits converts whole rupees into paisa as Stripe expects.
func minorUnits(amount int64) int64 {
	return amount * 100
}
