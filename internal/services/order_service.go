package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

// AdminOrderPageSize is the fixed page size of the admin listing.
const AdminOrderPageSize = 10

var (
	ErrOrderInvalidInput = errors.New("order: invalid input")
	ErrOrderNotFound     = errors.New("order: not found")
	// ErrOrderForbidden indicates the requester neither owns the order nor is an admin.
	ErrOrderForbidden   = errors.New("order: forbidden")
	ErrOrderPersistence = errors.New("order: persistence failure")
)

// OrderServiceDeps wires the order service.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Notifier OrderNotifier
	Clock    func() time.Time
	Logger   Logger
}

type orderService struct {
	orders   repositories.OrderRepository
	notifier OrderNotifier
	now      func() time.Time
	logger   Logger
}

// NewOrderService constructs an OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("order service: notifier is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &orderService{
		orders:   deps.Orders,
		notifier: deps.Notifier,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, requester Requester) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}
	order, err := s.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !requester.Admin && (requester.UserID == "" || order.UserID != requester.UserID) {
		return domain.Order{}, ErrOrderForbidden
	}
	return order, nil
}

// ListOwnOrders returns the user's orders, newest first.
func (s *orderService) ListOwnOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrOrderInvalidInput
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	return orders, nil
}

// ListAllOrders pages through every order, newest first. Search matches an order id exactly.
func (s *orderService) ListAllOrders(ctx context.Context, filter AdminOrderFilter) (OrderPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	var status *domain.OrderStatus
	if filter.Status != nil {
		parsed, ok := domain.ParseOrderStatus(string(*filter.Status))
		if !ok {
			return OrderPage{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *filter.Status)
		}
		status = &parsed
	}
	result, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status:   status,
		OrderID:  strings.TrimSpace(filter.Search),
		Page:     page,
		PageSize: AdminOrderPageSize,
	})
	if err != nil {
		return OrderPage{}, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	return OrderPage{
		Orders:      result.Items,
		Page:        page,
		Pages:       result.Pages,
		TotalOrders: result.Total,
	}, nil
}

// UpdateStatus applies a partial fulfilment update. Any status may follow any other.
// Entering Delivered settles unpaid COD orders; entering Shipped emails the customer after
// the update is stored.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}
	if cmd.Status == nil && cmd.CourierName == nil && cmd.TrackingID == nil {
		return domain.Order{}, fmt.Errorf("%w: nothing to update", ErrOrderInvalidInput)
	}
	var next domain.OrderStatus
	if cmd.Status != nil {
		parsed, ok := domain.ParseOrderStatus(string(*cmd.Status))
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *cmd.Status)
		}
		next = parsed
	}

	order, err := s.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	previous := order.Status
	now := s.now()

	if cmd.CourierName != nil {
		if name := strings.TrimSpace(*cmd.CourierName); name != "" {
			order.CourierInfo.CourierName = name
		}
	}
	if cmd.TrackingID != nil {
		if id := strings.TrimSpace(*cmd.TrackingID); id != "" {
			order.CourierInfo.TrackingID = id
		}
	}

	entered := func(status domain.OrderStatus) bool {
		return next == status && previous != status
	}
	if next != "" {
		order.Status = next
	}
	if entered(domain.OrderStatusDelivered) {
		delivered := now
		order.DeliveredAt = &delivered
		if order.PaymentMethod.Deferred() && !order.IsPaid {
			order.IsPaid = true
			if order.PaidAt == nil {
				paid := now
				order.PaidAt = &paid
			}
		}
	}
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		s.logger(ctx, "order.update.failed", map[string]any{"orderId": orderID, "error": err.Error()})
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	if previous != order.Status {
		s.logger(ctx, "order.status.changed", map[string]any{
			"orderId":  order.ID,
			"previous": string(previous),
			"current":  string(order.Status),
			"actorId":  cmd.ActorID,
		})
	}
	if entered(domain.OrderStatusShipped) {
		s.notifier.OrderShipped(ctx, order)
	}
	return order, nil
}

func (s *orderService) find(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	return order, nil
}
