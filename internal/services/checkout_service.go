package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/payments"
	"github.com/techmall/storefront-api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates there is nothing to order.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutInsufficientStock indicates at least one line exceeds available stock.
	ErrCheckoutInsufficientStock = errors.New("checkout: insufficient stock")
	// ErrCheckoutPaymentFailed indicates the gateway declined or timed out.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutPersistence indicates the store could not commit the order.
	ErrCheckoutPersistence = errors.New("checkout: persistence failure")
)

// PaymentError reports a failed charge with a reason safe to show the customer. It matches
// ErrCheckoutPaymentFailed under errors.Is.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return ErrCheckoutPaymentFailed.Error() + ": " + e.Reason
}

func (e *PaymentError) Is(target error) bool { return target == ErrCheckoutPaymentFailed }

func (e *PaymentError) Unwrap() error { return e.Err }

// DefaultShippingRates is used when no rate table is configured.
var DefaultShippingRates = map[domain.DeliveryMethod]int64{
	domain.DeliveryMethodStandard: 200,
	domain.DeliveryMethodExpress:  500,
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts         repositories.CartRepository
	Products      repositories.ProductRepository
	Orders        repositories.OrderRepository
	Payments      PaymentCharger
	Notifier      OrderNotifier
	ShippingRates map[domain.DeliveryMethod]int64
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
	// Observe receives the payment method and outcome of every checkout attempt.
	Observe func(method, outcome string)
}

type checkoutService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	payments PaymentCharger
	notifier OrderNotifier
	rates    map[domain.DeliveryMethod]int64
	now      func() time.Time
	newID    func() string
	logger   Logger
	observe  func(method, outcome string)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("checkout service: cart repository is required")
	case deps.Products == nil:
		return nil, errors.New("checkout service: product repository is required")
	case deps.Orders == nil:
		return nil, errors.New("checkout service: order repository is required")
	case deps.Payments == nil:
		return nil, errors.New("checkout service: payment charger is required")
	case deps.Notifier == nil:
		return nil, errors.New("checkout service: notifier is required")
	}

	rates := make(map[domain.DeliveryMethod]int64, len(DefaultShippingRates))
	for method, rate := range DefaultShippingRates {
		rates[method] = rate
	}
	for method, rate := range deps.ShippingRates {
		if rate < 0 {
			return nil, fmt.Errorf("checkout service: negative shipping rate for %s", method)
		}
		rates[method] = rate
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = NewOrderID
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	observe := deps.Observe
	if observe == nil {
		observe = func(string, string) {}
	}

	return &checkoutService{
		carts:    deps.Carts,
		products: deps.Products,
		orders:   deps.Orders,
		payments: deps.Payments,
		notifier: deps.Notifier,
		rates:    rates,
		now:      func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
		observe:  observe,
	}, nil
}

// NewOrderID returns "ord_" followed by a ULID, so ids sort by creation time.
func NewOrderID() string {
	return "ord_" + ulid.Make().String()
}

// PlaceOrder prices the cart, settles payment and commits the order together with its stock
// decrement. A failed charge leaves cart and stock untouched.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (domain.Order, error) {
	order, err := s.placeOrder(ctx, cmd)
	s.observe(string(cmd.PaymentMethod), checkoutOutcome(err))
	return order, err
}

func (s *checkoutService) placeOrder(ctx context.Context, cmd PlaceOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	shippingPrice, err := s.validate(cmd)
	if err != nil {
		return domain.Order{}, err
	}
	delivery := cmd.DeliveryMethod
	if delivery == "" {
		delivery = domain.DeliveryMethodStandard
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrCheckoutEmptyCart
		}
		return domain.Order{}, s.persistenceError(ctx, "checkout.cart.load.failed", userID, err)
	}
	if cart.Empty() {
		return domain.Order{}, ErrCheckoutEmptyCart
	}

	now := s.now()
	order := domain.Order{
		ID:     s.newID(),
		UserID: userID,
		Customer: domain.Customer{
			Name:  strings.TrimSpace(cmd.CustomerName),
			Email: strings.TrimSpace(cmd.CustomerEmail),
		},
		Items:           orderItemsFromCart(cart),
		ShippingAddress: trimAddress(cmd.ShippingAddress),
		PaymentMethod:   cmd.PaymentMethod,
		DeliveryMethod:  delivery,
		ItemsPrice:      cart.TotalPrice,
		ShippingPrice:   shippingPrice,
		TotalPrice:      cart.TotalPrice + shippingPrice,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.precheckStock(ctx, order); err != nil {
		return domain.Order{}, err
	}

	if cmd.PaymentMethod.Deferred() {
		order.PaymentResult = domain.PaymentResult{Status: domain.PaymentStatusPendingCOD}
	} else {
		result, err := s.payments.Charge(ctx, payments.ChargeRequest{
			Method:       cmd.PaymentMethod,
			Amount:       order.TotalPrice,
			Currency:     domain.Currency,
			PayerAccount: strings.TrimSpace(cmd.PayerAccount),
			Reference:    order.ID,
		})
		if err != nil {
			s.logger(ctx, "checkout.payment.failed", map[string]any{
				"orderId": order.ID,
				"userId":  userID,
				"method":  string(cmd.PaymentMethod),
				"error":   err.Error(),
			})
			return domain.Order{}, &PaymentError{Reason: paymentReason(err), Err: err}
		}
		settledAt := result.SettledAt
		if settledAt.IsZero() {
			settledAt = now
		}
		settledAt = settledAt.UTC()
		status := result.Status
		if status == "" {
			status = domain.PaymentStatusCompleted
		}
		order.PaymentResult = domain.PaymentResult{
			ID:           result.TransactionID,
			Status:       status,
			UpdateTime:   settledAt.Format(time.RFC3339),
			EmailAddress: order.Customer.Email,
		}
		order.IsPaid = true
		order.PaidAt = &settledAt
	}

	if err := s.orders.Commit(ctx, order); err != nil {
		if order.IsPaid {
			s.logger(ctx, "checkout.payment.unreconciled", map[string]any{
				"orderId":       order.ID,
				"userId":        userID,
				"transactionId": order.PaymentResult.ID,
				"amount":        order.TotalPrice,
				"error":         err.Error(),
			})
		}
		if invErr, ok := repositories.AsInventoryError(err); ok {
			if invErr.Code == repositories.InventoryErrorInvalidQuantity {
				return domain.Order{}, fmt.Errorf("%w: invalid quantity for %s", ErrCheckoutInvalidInput, itemName(order, invErr.ProductID))
			}
			return domain.Order{}, fmt.Errorf("%w: %s", ErrCheckoutInsufficientStock, s.stockMessage(ctx, order, invErr))
		}
		return domain.Order{}, s.persistenceError(ctx, "checkout.commit.failed", userID, err)
	}

	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.logger(ctx, "checkout.cart.delete.failed", map[string]any{
			"orderId": order.ID,
			"userId":  userID,
			"error":   err.Error(),
		})
	}

	s.notifier.OrderConfirmed(ctx, order)
	s.logger(ctx, "checkout.order.placed", map[string]any{
		"orderId": order.ID,
		"userId":  userID,
		"method":  string(order.PaymentMethod),
		"total":   order.TotalPrice,
	})
	return order, nil
}

// validate returns the shipping price for the command.
func (s *checkoutService) validate(cmd PlaceOrderCommand) (int64, error) {
	addr := cmd.ShippingAddress
	switch {
	case strings.TrimSpace(cmd.UserID) == "":
		return 0, fmt.Errorf("%w: user is required", ErrCheckoutInvalidInput)
	case strings.TrimSpace(addr.Address) == "",
		strings.TrimSpace(addr.City) == "",
		strings.TrimSpace(addr.Province) == "",
		strings.TrimSpace(addr.Phone) == "":
		return 0, fmt.Errorf("%w: address, city, province and phone are required", ErrCheckoutInvalidInput)
	}

	if method, ok := domain.ParsePaymentMethod(string(cmd.PaymentMethod)); !ok || method != cmd.PaymentMethod {
		return 0, fmt.Errorf("%w: unsupported payment method %q", ErrCheckoutInvalidInput, cmd.PaymentMethod)
	}
	if !cmd.PaymentMethod.Deferred() {
		if !s.payments.Supports(cmd.PaymentMethod) {
			return 0, fmt.Errorf("%w: payment method %s is not available", ErrCheckoutInvalidInput, cmd.PaymentMethod)
		}
		if strings.TrimSpace(cmd.PayerAccount) == "" {
			return 0, fmt.Errorf("%w: payer account is required for %s", ErrCheckoutInvalidInput, cmd.PaymentMethod)
		}
	}

	delivery := cmd.DeliveryMethod
	if delivery == "" {
		delivery = domain.DeliveryMethodStandard
	}
	rate, ok := s.rates[delivery]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported delivery method %q", ErrCheckoutInvalidInput, cmd.DeliveryMethod)
	}
	return rate, nil
}

// precheckStock fails fast before any charge and rejects lines below one unit. The authoritative check is the conditional
// decrement inside Commit.
func (s *checkoutService) precheckStock(ctx context.Context, order domain.Order) error {
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: invalid quantity for %s", ErrCheckoutInvalidInput, itemName(order, item.ProductID))
		}
	}
	lines := order.StockLines()
	if err := repositories.CheckStockLines(lines); err != nil {
		invErr, _ := repositories.AsInventoryError(err)
		return fmt.Errorf("%w: invalid quantity for %s", ErrCheckoutInvalidInput, itemName(order, invErr.ProductID))
	}
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return s.persistenceError(ctx, "checkout.stock.lookup.failed", order.UserID, err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return fmt.Errorf("%w: %s is no longer available", ErrCheckoutInsufficientStock, itemName(order, line.ProductID))
		}
		if product.StockQuantity < line.Quantity {
			return fmt.Errorf("%w: insufficient stock for %s", ErrCheckoutInsufficientStock, product.Name)
		}
	}
	return nil
}

func (s *checkoutService) stockMessage(ctx context.Context, order domain.Order, invErr *repositories.InventoryError) string {
	s.logger(ctx, "checkout.stock.conflict", map[string]any{
		"orderId":   order.ID,
		"productId": invErr.ProductID,
		"code":      string(invErr.Code),
	})
	name := itemName(order, invErr.ProductID)
	if invErr.Code == repositories.InventoryErrorProductNotFound {
		return name + " is no longer available"
	}
	return "insufficient stock for " + name
}

func (s *checkoutService) persistenceError(ctx context.Context, event, userID string, err error) error {
	s.logger(ctx, event, map[string]any{"userId": userID, "error": err.Error()})
	return fmt.Errorf("%w: %v", ErrCheckoutPersistence, err)
}

func orderItemsFromCart(cart domain.Cart) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	return items
}

func trimAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		Apartment:  strings.TrimSpace(a.Apartment),
		City:       strings.TrimSpace(a.City),
		Province:   strings.TrimSpace(a.Province),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

func itemName(order domain.Order, productID string) string {
	for _, item := range order.Items {
		if item.ProductID == productID && item.Name != "" {
			return item.Name
		}
	}
	return productID
}

func paymentReason(err error) string {
	var decline *payments.DeclineError
	switch {
	case errors.As(err, &decline) && decline.Reason != "":
		return decline.Reason
	case errors.Is(err, payments.ErrTimeout):
		return "payment gateway timed out"
	default:
		return "payment could not be completed"
	}
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "placed"
	case errors.Is(err, ErrCheckoutInvalidInput):
		return "invalid"
	case errors.Is(err, ErrCheckoutEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCheckoutInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrCheckoutPaymentFailed):
		return "payment_failed"
	default:
		return "error"
	}
}
