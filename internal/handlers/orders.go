package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/httpx"
	"github.com/techmall/storefront-api/internal/platform/pagination"
	"github.com/techmall/storefront-api/internal/services"
)

// OrderHandlers exposes checkout, customer order history and the admin order desk.
type OrderHandlers struct {
	authn       *auth.Authenticator
	checkout    services.CheckoutService
	orders      services.OrderService
	stats       services.OrderStatsService
	idempotency func(http.Handler) http.Handler
}

// OrderHandlerOption customises OrderHandlers.
type OrderHandlerOption func(*OrderHandlers)

// WithCheckoutIdempotency guards order placement with the given middleware.
func WithCheckoutIdempotency(mw func(http.Handler) http.Handler) OrderHandlerOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// NewOrderHandlers constructs order handlers. Every route requires authentication.
func NewOrderHandlers(authn *auth.Authenticator, checkout services.CheckoutService, orders services.OrderService, stats services.OrderStatsService, opts ...OrderHandlerOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:    authn,
		checkout: checkout,
		orders:   orders,
		stats:    stats,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /orders endpoints. Admin paths are registered before /{orderID}.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}

	if h.idempotency != nil {
		r.With(h.idempotency).Post("/", h.placeOrder)
	} else {
		r.Post("/", h.placeOrder)
	}
	r.Get("/mine", h.listOwnOrders)
	r.Get("/myorders", h.listOwnOrders)

	r.Group(func(admin chi.Router) {
		admin.Use(requireAdmin)
		admin.Get("/admin/stats", h.orderStats)
		admin.Get("/admin", h.listAllOrders)
		admin.Put("/{orderID}", h.updateOrder)
	})

	r.Get("/{orderID}", h.getOrder)
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := requireIdentity(ctx, w)
		if !ok {
			return
		}
		if !identity.IsAdmin() {
			httpx.WriteError(ctx, w, httpx.NewError("insufficient_role", "not authorized as an admin", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type placeOrderRequest struct {
	ShippingAddress addressRequest `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	DeliveryMethod  string         `json:"deliveryMethod"`
	MobileAccount   string         `json:"mobileAccount"`
	PaymentMethodID string         `json:"paymentMethodId"`

	// Totals and lines sent by the storefront are ignored; the cart is authoritative.
	OrderItems    json.RawMessage `json:"orderItems,omitempty"`
	ItemsPrice    json.RawMessage `json:"itemsPrice,omitempty"`
	ShippingPrice json.RawMessage `json:"shippingPrice,omitempty"`
	TotalPrice    json.RawMessage `json:"totalPrice,omitempty"`
}

type addressRequest struct {
	Address    string `json:"address"`
	Apartment  string `json:"apartment"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

type updateOrderRequest struct {
	Status      *string `json:"status"`
	CourierName *string `json:"courierName"`
	TrackingID  *string `json:"trackingId"`
}

type adminOrderListResponse struct {
	Orders      []orderPayload `json:"orders"`
	Page        int            `json:"page"`
	Pages       int            `json:"pages"`
	TotalOrders int            `json:"totalOrders"`
}

type orderStatsResponse struct {
	TotalRevenue  int64  `json:"totalRevenue"`
	TotalOrders   int    `json:"totalOrders"`
	PendingOrders int    `json:"pendingOrders"`
	PaidOrders    int    `json:"paidOrders"`
	Currency      string `json:"currency"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		unavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	method := domain.PaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if parsed, ok := domain.ParsePaymentMethod(req.PaymentMethod); ok {
		method = parsed
	}
	delivery := domain.DeliveryMethod(strings.TrimSpace(req.DeliveryMethod))
	if parsed, ok := domain.ParseDeliveryMethod(req.DeliveryMethod); ok {
		delivery = parsed
	}
	payer := strings.TrimSpace(req.MobileAccount)
	if method == domain.PaymentMethodCard {
		payer = strings.TrimSpace(req.PaymentMethodID)
	}

	addr := req.ShippingAddress
	order, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:        identity.UID,
		CustomerName:  identity.Name,
		CustomerEmail: identity.Email,
		ShippingAddress: domain.ShippingAddress{
			Address:    addr.Address,
			Apartment:  addr.Apartment,
			City:       addr.City,
			Province:   addr.Province,
			PostalCode: addr.PostalCode,
			Phone:      addr.Phone,
		},
		PaymentMethod:  method,
		DeliveryMethod: delivery,
		PayerAccount:   payer,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+order.ID)
	httpx.WriteJSON(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		unavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orders, err := h.orders.ListOwnOrders(ctx, identity.UID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayloads(orders))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		unavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")), services.Requester{
		UserID: identity.UID,
		Admin:  identity.IsAdmin(),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		unavailable(ctx, w, "order")
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{FixedPageSize: services.AdminOrderPageSize})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	query := r.URL.Query()
	filter := services.AdminOrderFilter{
		Search: strings.TrimSpace(query.Get("search")),
		Page:   params.Page,
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		status := domain.OrderStatus(raw)
		filter.Status = &status
	}

	page, err := h.orders.ListAllOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminOrderListResponse{
		Orders:      buildOrderPayloads(page.Orders),
		Page:        page.Page,
		Pages:       page.Pages,
		TotalOrders: page.TotalOrders,
	})
}

func (h *OrderHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		unavailable(ctx, w, "order_stats")
		return
	}
	stats, err := h.stats.ComputeStats(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderStatsResponse{
		TotalRevenue:  stats.TotalRevenue,
		TotalOrders:   stats.TotalOrders,
		PendingOrders: stats.PendingOrders,
		PaidOrders:    stats.PaidOrders,
		Currency:      domain.Currency,
	})
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		unavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req updateOrderRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	cmd := services.UpdateOrderStatusCommand{
		OrderID:     strings.TrimSpace(chi.URLParam(r, "orderID")),
		CourierName: req.CourierName,
		TrackingID:  req.TrackingID,
		ActorID:     identity.UID,
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status := domain.OrderStatus(strings.TrimSpace(*req.Status))
		cmd.Status = &status
	}

	order, err := h.orders.UpdateStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "no items in cart", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", err.Error(), http.StatusBadRequest).
			WithDetails(map[string]any{"reason": paymentReason(err)}))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to place order", http.StatusInternalServerError))
	}
}

func paymentReason(err error) string {
	var payErr *services.PaymentError
	if errors.As(err, &payErr) && payErr.Reason != "" {
		return payErr.Reason
	}
	return "payment failed"
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not authorized to view this order", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
