package services

import (
	"context"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/payments"
)

// Logger is the structured event sink shared by every service.
type Logger func(ctx context.Context, event string, fields map[string]any)

func nopLogger(context.Context, string, map[string]any) {}

// CatalogService serves the product catalog.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductListQuery) (domain.OffsetPage[domain.Product], error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, productID string, input ProductInput) (domain.Product, error)
}

// CartService manages the per-customer basket.
type CartService interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID string) (domain.Cart, error)
}

// CheckoutService turns a cart into a committed order.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (domain.Order, error)
}

// OrderService exposes order reads and the fulfilment lifecycle.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string, requester Requester) (domain.Order, error)
	ListOwnOrders(ctx context.Context, userID string) ([]domain.Order, error)
	ListAllOrders(ctx context.Context, filter AdminOrderFilter) (OrderPage, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error)
}

// OrderStatsService computes the admin dashboard figures.
type OrderStatsService interface {
	ComputeStats(ctx context.Context) (domain.OrderStats, error)
}

// WishlistService manages saved products.
type WishlistService interface {
	GetWishlist(ctx context.Context, userID string) (WishlistView, error)
	AddItem(ctx context.Context, userID string, productID string) (WishlistView, error)
	RemoveItem(ctx context.Context, userID string, productID string) (WishlistView, error)
	Contains(ctx context.Context, userID string, productID string) (bool, error)
}

// OrderNotifier receives order events. Implementations must not block the caller.
type OrderNotifier interface {
	OrderConfirmed(ctx context.Context, order domain.Order)
	OrderShipped(ctx context.Context, order domain.Order)
}

// PaymentCharger settles synchronous charges. payments.Manager satisfies it.
type PaymentCharger interface {
	Supports(method domain.PaymentMethod) bool
	Charge(ctx context.Context, req payments.ChargeRequest) (payments.ChargeResult, error)
}

// Requester is the caller on whose behalf a read is made.
type Requester struct {
	UserID string
	Admin  bool
}

type ProductListQuery struct {
	Category string
	Page     int
	PageSize int
}

// ProductInput carries the writable catalog fields.
type ProductInput struct {
	Name          string
	SKU           string
	Brand         string
	Description   string
	Images        []string
	OriginalPrice int64
	SalePrice     *int64
	OnSale        bool
	StockQuantity int
	Category      string
	Badge         string
	Slug          string
	Published     bool
}

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// PlaceOrderCommand is the checkout request. PayerAccount is the wallet MSISDN or the
// card payment-method id and is ignored for COD.
type PlaceOrderCommand struct {
	UserID          string
	CustomerName    string
	CustomerEmail   string
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	DeliveryMethod  domain.DeliveryMethod
	PayerAccount    string
}

// UpdateOrderStatusCommand is a partial update; nil fields are left untouched.
type UpdateOrderStatusCommand struct {
	OrderID     string
	Status      *domain.OrderStatus
	CourierName *string
	TrackingID  *string
	ActorID     string
}

type AdminOrderFilter struct {
	Status *domain.OrderStatus
	Search string
	Page   int
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders      []domain.Order
	Page        int
	Pages       int
	TotalOrders int
}

// WishlistEntry is a saved product joined with its catalog record.
type WishlistEntry struct {
	Product domain.Product
	AddedAt time.Time
}

type WishlistView struct {
	UserID string
	Items  []WishlistEntry
}
