package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/idempotency"
	"github.com/techmall/storefront-api/internal/services"
)

const checkoutBody = `{
	"orderItems": [{"product": "p1", "qty": 2}],
	"shippingAddress": {"address": "12 Mall Road", "city": "Lahore", "province": "Punjab", "postalCode": "54000", "phone": "03001234567"},
	"paymentMethod": "cod",
	"deliveryMethod": "",
	"itemsPrice": 2000,
	"shippingPrice": 200,
	"totalPrice": 2200
}`

func orderRouter(h *OrderHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/orders", h.Routes)
	return router
}

func sampleOrder() domain.Order {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:             "ord_1",
		UserID:         "user-1",
		Items:          []domain.OrderItem{{ProductID: "p1", Name: "Puzzle", Price: 1000, Quantity: 2}},
		PaymentMethod:  domain.PaymentMethodCOD,
		PaymentResult:  domain.PaymentResult{Status: domain.PaymentStatusPendingCOD, UpdateTime: created.Format(time.RFC3339)},
		DeliveryMethod: domain.DeliveryMethodStandard,
		ItemsPrice:     2000,
		ShippingPrice:  200,
		TotalPrice:     2200,
		Status:         domain.OrderStatusPending,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestOrderHandlersPlaceOrder(t *testing.T) {
	var captured services.PlaceOrderCommand
	checkout := &stubCheckoutService{
		placeFn: func(_ context.Context, cmd services.PlaceOrderCommand) (domain.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, checkout, &stubOrderService{}, &stubStatsService{}))

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(req, "user-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "user-1" || captured.CustomerEmail != "user-1@example.com" {
		t.Fatalf("unexpected caller %#v", captured)
	}
	if captured.PaymentMethod != domain.PaymentMethodCOD || captured.DeliveryMethod != domain.DeliveryMethodStandard {
		t.Fatalf("expected canonical methods, got %q/%q", captured.PaymentMethod, captured.DeliveryMethod)
	}
	if captured.ShippingAddress.City != "Lahore" || captured.ShippingAddress.Province != "Punjab" {
		t.Fatalf("unexpected address %#v", captured.ShippingAddress)
	}

	var payload orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.TotalPrice != 2200 || payload.IsPaid || payload.OrderStatus != "Pending" {
		t.Fatalf("unexpected order payload %#v", payload)
	}
	if payload.PaymentResult.Status != domain.PaymentStatusPendingCOD || payload.PaidAt != nil {
		t.Fatalf("unexpected payment fields %#v", payload.PaymentResult)
	}
	if !strings.Contains(rr.Body.String(), `"update_time"`) {
		t.Fatalf("expected snake_case update_time in %s", rr.Body.String())
	}
}

func TestOrderHandlersPlaceOrderWalletAccount(t *testing.T) {
	var captured services.PlaceOrderCommand
	checkout := &stubCheckoutService{
		placeFn: func(_ context.Context, cmd services.PlaceOrderCommand) (domain.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, checkout, nil, nil))

	body := `{"shippingAddress":{"address":"a","city":"b","province":"c","phone":"d"},"paymentMethod":"JazzCash","deliveryMethod":"express","mobileAccount":" 03001234567 "}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), "user-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if captured.PaymentMethod != domain.PaymentMethodJazzCash || captured.PayerAccount != "03001234567" || captured.DeliveryMethod != domain.DeliveryMethodExpress {
		t.Fatalf("unexpected command %#v", captured)
	}

	body = `{"shippingAddress":{"address":"a","city":"b","province":"c","phone":"d"},"paymentMethod":"Card","paymentMethodId":"pm_card_visa"}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)), "user-1"))
	if captured.PayerAccount != "pm_card_visa" {
		t.Fatalf("expected card payment method id, got %q", captured.PayerAccount)
	}
}

func TestOrderHandlersPlaceOrderErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty", services.ErrCheckoutEmptyCart, http.StatusBadRequest, "cart_empty"},
		{"stock", fmt.Errorf("%w: insufficient stock for Puzzle", services.ErrCheckoutInsufficientStock), http.StatusBadRequest, "insufficient_stock"},
		{"payment", fmt.Errorf("place order: %w", &services.PaymentError{Reason: "wallet declined"}), http.StatusBadRequest, "payment_failed"},
		{"invalid", fmt.Errorf("%w: phone", services.ErrCheckoutInvalidInput), http.StatusBadRequest, "invalid_request"},
		{"store", fmt.Errorf("%w: unavailable", services.ErrCheckoutPersistence), http.StatusInternalServerError, "checkout_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkout := &stubCheckoutService{
				placeFn: func(context.Context, services.PlaceOrderCommand) (domain.Order, error) {
					return domain.Order{}, tc.err
				},
			}
			router := orderRouter(NewOrderHandlers(nil, checkout, nil, nil))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody)), "user-1"))
			assertErrorCode(t, rr, tc.status, tc.code)
			if tc.name == "payment" {
				details, _ := decodeBodyMap(t, rr)["details"].(map[string]any)
				if details["reason"] != "wallet declined" {
					t.Fatalf("expected decline reason, got %#v", details)
				}
			}
			if tc.name == "store" && strings.Contains(rr.Body.String(), "unavailable") {
				t.Fatalf("persistence detail leaked: %s", rr.Body.String())
			}
		})
	}
}

func TestOrderHandlersIdempotentCheckout(t *testing.T) {
	var calls int32
	checkout := &stubCheckoutService{
		placeFn: func(context.Context, services.PlaceOrderCommand) (domain.Order, error) {
			atomic.AddInt32(&calls, 1)
			return sampleOrder(), nil
		},
	}
	handlers := NewOrderHandlers(nil, checkout, nil, nil,
		WithCheckoutIdempotency(idempotency.Middleware(idempotency.NewMemoryStore())))
	router := orderRouter(handlers)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(checkoutBody))
		req.Header.Set(idempotency.DefaultHeader, "checkout-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, asUser(req, "user-1"))
		return rr
	}

	first := send()
	second := send()
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected both 201, got %d and %d", first.Code, second.Code)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one order placed, got %d", got)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed body")
	}
}

func TestOrderHandlersListOwnOrders(t *testing.T) {
	orders := &stubOrderService{
		listOwnFn: func(_ context.Context, userID string) ([]domain.Order, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []domain.Order{sampleOrder()}, nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, nil, orders, nil))

	for _, path := range []string{"/orders/mine", "/orders/myorders"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, path, nil), "user-1"))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		var payload []orderPayload
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil || len(payload) != 1 {
			t.Fatalf("%s: unexpected body %s", path, rr.Body.String())
		}
	}
}

func TestOrderHandlersGetOrderPassesRequester(t *testing.T) {
	var captured services.Requester
	orders := &stubOrderService{
		getFn: func(_ context.Context, id string, requester services.Requester) (domain.Order, error) {
			captured = requester
			if !requester.Admin && requester.UserID != "user-1" {
				return domain.Order{}, services.ErrOrderForbidden
			}
			return sampleOrder(), nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, nil, orders, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), "user-2"))
	assertErrorCode(t, rr, http.StatusForbidden, "forbidden")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), "admin-1", auth.RoleAdmin))
	if rr.Code != http.StatusOK || !captured.Admin {
		t.Fatalf("expected admin read, got %d %#v", rr.Code, captured)
	}
}

func TestOrderHandlersAdminRoutesRequireAdmin(t *testing.T) {
	router := orderRouter(NewOrderHandlers(nil, nil, &stubOrderService{}, &stubStatsService{}))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/orders/admin"},
		{http.MethodGet, "/orders/admin/stats"},
		{http.MethodPut, "/orders/ord_1"},
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, asUser(httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)), "user-1", auth.RoleCustomer))
		assertErrorCode(t, rr, http.StatusForbidden, "insufficient_role")
	}
}

func TestOrderHandlersAdminListAndStats(t *testing.T) {
	var captured services.AdminOrderFilter
	orders := &stubOrderService{
		listAllFn: func(_ context.Context, filter services.AdminOrderFilter) (services.OrderPage, error) {
			captured = filter
			return services.OrderPage{Orders: []domain.Order{sampleOrder()}, Page: 2, Pages: 3, TotalOrders: 21}, nil
		},
	}
	stats := &stubStatsService{stats: domain.OrderStats{TotalRevenue: 4100, TotalOrders: 3, PendingOrders: 2, PaidOrders: 1}}
	router := orderRouter(NewOrderHandlers(nil, nil, orders, stats))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/admin?status=shipped&search=ord_1&page=2", nil), "admin-1", auth.RoleAdmin))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Status == nil || *captured.Status != "shipped" || captured.Search != "ord_1" || captured.Page != 2 {
		t.Fatalf("unexpected filter %#v", captured)
	}
	body := decodeBodyMap(t, rr)
	if body["totalOrders"] != float64(21) || body["pages"] != float64(3) || len(body["orders"].([]any)) != 1 {
		t.Fatalf("unexpected list body %#v", body)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/admin?status=all", nil), "admin-1", auth.RoleAdmin))
	if captured.Status != nil {
		t.Fatalf("expected no status filter for all, got %v", *captured.Status)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/admin/stats", nil), "admin-1", auth.RoleAdmin))
	body = decodeBodyMap(t, rr)
	if body["totalRevenue"] != float64(4100) || body["pendingOrders"] != float64(2) || body["paidOrders"] != float64(1) {
		t.Fatalf("unexpected stats %#v", body)
	}
}

func TestOrderHandlersUpdateOrder(t *testing.T) {
	var captured services.UpdateOrderStatusCommand
	orders := &stubOrderService{
		updateFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
			captured = cmd
			if cmd.OrderID == "ord_missing" {
				return domain.Order{}, services.ErrOrderNotFound
			}
			order := sampleOrder()
			order.Status = domain.OrderStatusShipped
			order.CourierInfo = domain.CourierInfo{CourierName: *cmd.CourierName, TrackingID: *cmd.TrackingID}
			return order, nil
		},
	}
	router := orderRouter(NewOrderHandlers(nil, nil, orders, nil))

	body := `{"status":"Shipped","courierName":"Leopards","trackingId":"LP123"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPut, "/orders/ord_1", strings.NewReader(body)), "admin-1", auth.RoleAdmin))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Status == nil || *captured.Status != domain.OrderStatusShipped || captured.ActorID != "admin-1" {
		t.Fatalf("unexpected command %#v", captured)
	}
	var payload orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.CourierInfo.TrackingID != "LP123" || payload.OrderStatus != "Shipped" {
		t.Fatalf("unexpected payload %#v", payload)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPut, "/orders/ord_missing", strings.NewReader(body)), "admin-1", auth.RoleAdmin))
	assertErrorCode(t, rr, http.StatusNotFound, "order_not_found")

	// Courier-only update leaves the status untouched.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPut, "/orders/ord_1", strings.NewReader(`{"courierName":"TCS","trackingId":"T1"}`)), "admin-1", auth.RoleAdmin))
	if captured.Status != nil {
		t.Fatalf("expected nil status, got %v", *captured.Status)
	}
}
