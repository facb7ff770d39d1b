package notify

import (
	"context"
	"errors"
	"strings"

	domain "github.com/techmall/storefront-api/internal/domain"
)

// Enqueuer accepts rendered emails for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, email Email) error
}

// OrderNotifier renders order emails and queues them. Every method is fire-and-forget:
// failures are logged and never returned.
type OrderNotifier struct {
	renderer *Renderer
	queue    Enqueuer
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderNotifier wires a renderer to a queue.
func NewOrderNotifier(renderer *Renderer, queue Enqueuer, logger func(ctx context.Context, event string, fields map[string]any)) (*OrderNotifier, error) {
	if renderer == nil {
		return nil, errors.New("notify: renderer is required")
	}
	if queue == nil {
		return nil, errors.New("notify: queue is required")
	}
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderNotifier{renderer: renderer, queue: queue, logger: logger}, nil
}

// OrderConfirmed queues the checkout confirmation.
func (n *OrderNotifier) OrderConfirmed(ctx context.Context, order domain.Order) {
	n.send(ctx, order, n.renderer.OrderConfirmed)
}

// OrderShipped queues the shipment notice.
func (n *OrderNotifier) OrderShipped(ctx context.Context, order domain.Order) {
	n.send(ctx, order, n.renderer.OrderShipped)
}

func (n *OrderNotifier) send(ctx context.Context, order domain.Order, render func(domain.Order) (Email, error)) {
	if strings.TrimSpace(order.Customer.Email) == "" {
		n.logger(ctx, "notify.email.skipped", map[string]any{"orderId": order.ID, "reason": "no recipient"})
		return
	}
	email, err := render(order)
	if err != nil {
		n.logger(ctx, "notify.email.render.failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return
	}
	// ErrQueueFull is already logged by the dispatcher.
	if err := n.queue.Enqueue(ctx, email); err != nil && !errors.Is(err, ErrQueueFull) {
		n.logger(ctx, "notify.email.enqueue.failed", map[string]any{"orderId": order.ID, "kind": email.Kind, "error": err.Error()})
	}
}
