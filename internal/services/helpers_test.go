package services

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/payments"
	"github.com/techmall/storefront-api/internal/repositories"
	"github.com/techmall/storefront-api/internal/repositories/memory"
)

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type capturingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *capturingLogger) log(_ context.Context, event string, _ map[string]any) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *capturingLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
	shipped   []domain.Order
}

func (n *recordingNotifier) OrderConfirmed(_ context.Context, order domain.Order) {
	n.mu.Lock()
	n.confirmed = append(n.confirmed, order.ID)
	n.mu.Unlock()
}

func (n *recordingNotifier) OrderShipped(_ context.Context, order domain.Order) {
	n.mu.Lock()
	n.shipped = append(n.shipped, order)
	n.mu.Unlock()
}

type stubCharger struct {
	supported map[domain.PaymentMethod]bool
	chargeFn  func(context.Context, payments.ChargeRequest) (payments.ChargeResult, error)
	calls     int
}

func (s *stubCharger) Supports(method domain.PaymentMethod) bool {
	if s.supported == nil {
		return true
	}
	return s.supported[method]
}

func (s *stubCharger) Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error) {
	s.calls++
	if s.chargeFn != nil {
		return s.chargeFn(ctx, req)
	}
	return payments.ChargeResult{TransactionID: "TXN-1", Status: domain.PaymentStatusCompleted, SettledAt: fixedNow}, nil
}

func seedProduct(t *testing.T, reg *memory.Registry, id string, price int64, stock int) domain.Product {
	t.Helper()
	product := domain.Product{
		ID:            id,
		Name:          "Product " + id,
		OriginalPrice: price,
		StockQuantity: stock,
		Images:        []string{"https://cdn.example.com/" + id + ".jpg"},
		Published:     true,
		CreatedAt:     fixedNow,
	}
	if err := reg.Products().Save(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedCart(t *testing.T, reg *memory.Registry, userID string, items ...domain.CartItem) {
	t.Helper()
	cart := domain.Cart{UserID: userID, CreatedAt: fixedNow}
	for _, item := range items {
		cart.AddItem(item)
	}
	if _, err := reg.Carts().UpsertCart(context.Background(), cart); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func stockOf(t *testing.T, reg *memory.Registry, id string) int {
	t.Helper()
	product, err := reg.Products().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	return product.StockQuantity
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Address:  "House 12, Street 4",
		City:     "Lahore",
		Province: "Punjab",
		Phone:    "03001234567",
	}
}

// deletedProducts hides one product from batch lookups, as if it was removed from the catalog.
type deletedProducts struct {
	repositories.ProductRepository
	gone string
}

func (d *deletedProducts) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	all, err := d.ProductRepository.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.ID != d.gone {
			out = append(out, p)
		}
	}
	return out, nil
}

func wishlistItem(productID string) domain.WishlistItem {
	return domain.WishlistItem{ProductID: productID, AddedAt: fixedNow}
}
