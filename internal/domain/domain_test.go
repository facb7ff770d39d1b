package domain

import (
	"testing"
	"time"
)

func TestComputeCartTotal(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Price: 1000, Quantity: 2},
		{ProductID: "p2", Price: 350, Quantity: 1},
	}
	if got := ComputeCartTotal(items); got != 2350 {
		t.Fatalf("expected 2350, got %d", got)
	}
	if got := ComputeCartTotal(nil); got != 0 {
		t.Fatalf("expected empty total 0, got %d", got)
	}
}

func TestCartAddItemMergesAndKeepsCapturedPrice(t *testing.T) {
	var cart Cart
	cart.AddItem(CartItem{ProductID: "p1", Price: 1000, Quantity: 1})
	cart.AddItem(CartItem{ProductID: "p1", Price: 900, Quantity: 2})
	cart.AddItem(CartItem{ProductID: "p2", Price: 50, Quantity: 1})

	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 || cart.Items[0].Price != 1000 {
		t.Fatalf("unexpected merged line %#v", cart.Items[0])
	}
	if cart.TotalPrice != 3050 {
		t.Fatalf("expected total 3050, got %d", cart.TotalPrice)
	}
}

func TestCartRemoveItemRecomputesTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: "p1", Price: 1000, Quantity: 1},
		{ProductID: "p2", Price: 200, Quantity: 3},
	}}
	original := cart.Items

	if !cart.RemoveItem("p1") {
		t.Fatalf("expected removal")
	}
	if cart.TotalPrice != 600 {
		t.Fatalf("expected total 600, got %d", cart.TotalPrice)
	}
	if original[0].ProductID != "p1" {
		t.Fatalf("expected original slice untouched, got %#v", original)
	}
	if cart.RemoveItem("missing") {
		t.Fatalf("expected no change for unknown product")
	}
}

func TestProductStatusAndPrice(t *testing.T) {
	sale := int64(800)
	cases := []struct {
		name    string
		product Product
		status  string
		price   int64
	}{
		{"out of stock", Product{StockQuantity: 0, OriginalPrice: 1000}, ProductStatusOutOfStock, 1000},
		{"low stock", Product{StockQuantity: 5, OriginalPrice: 1000, OnSale: true, SalePrice: &sale}, ProductStatusLowStock, 800},
		{"in sale", Product{StockQuantity: 6, OriginalPrice: 1000, OnSale: true, SalePrice: &sale}, ProductStatusInSale, 800},
		{"in stock", Product{StockQuantity: 40, OriginalPrice: 1000}, ProductStatusInStock, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.product.Status(); got != tc.status {
				t.Fatalf("expected status %s, got %s", tc.status, got)
			}
			if got := tc.product.EffectivePrice(); got != tc.price {
				t.Fatalf("expected price %d, got %d", tc.price, got)
			}
		})
	}
}

func TestProductNormalize(t *testing.T) {
	sale := int64(750)
	p := Product{Name: "  Crème Brûlée Puzzle 500 pcs ", SKU: "pz-500", OriginalPrice: 1000, SalePrice: &sale, OnSale: true}
	p.Normalize()

	if p.Slug != "creme-brulee-puzzle-500-pcs" {
		t.Fatalf("unexpected slug %q", p.Slug)
	}
	if p.SKU != "PZ-500" {
		t.Fatalf("unexpected sku %q", p.SKU)
	}
	if p.DiscountPercentage != 25 {
		t.Fatalf("expected 25%% discount, got %d", p.DiscountPercentage)
	}
}

func TestParseOrderStatus(t *testing.T) {
	for raw, want := range map[string]OrderStatus{
		"pending":          OrderStatusPending,
		"Out for Delivery": OrderStatusOutForDelivery,
		"OutForDelivery":   OrderStatusOutForDelivery,
		" DELIVERED ":      OrderStatusDelivered,
		"canceled":         OrderStatusCancelled,
	} {
		got, ok := ParseOrderStatus(raw)
		if !ok || got != want {
			t.Fatalf("parse %q: expected %s, got %s (ok=%v)", raw, want, got, ok)
		}
	}
	if _, ok := ParseOrderStatus("lost"); ok {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestSummarizeOrders(t *testing.T) {
	if stats := SummarizeOrders(nil); stats != (OrderStats{}) {
		t.Fatalf("expected zero stats, got %#v", stats)
	}

	paidAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	stats := SummarizeOrders([]Order{
		{Status: OrderStatusPending, TotalPrice: 2200},
		{Status: OrderStatusPending, TotalPrice: 1200},
		{Status: OrderStatusDelivered, TotalPrice: 500, IsPaid: true, PaidAt: &paidAt},
	})
	want := OrderStats{TotalRevenue: 3900, TotalOrders: 3, PendingOrders: 2, PaidOrders: 1}
	if stats != want {
		t.Fatalf("expected %#v, got %#v", want, stats)
	}
}

func TestOrderStockLinesAggregatesProducts(t *testing.T) {
	order := Order{Items: []OrderItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 2},
		{ProductID: "p1", Quantity: 3},
	}}
	lines := order.StockLines()
	if len(lines) != 2 || lines[0] != (StockLine{ProductID: "p1", Quantity: 4}) || lines[1] != (StockLine{ProductID: "p2", Quantity: 2}) {
		t.Fatalf("unexpected lines %#v", lines)
	}
}
