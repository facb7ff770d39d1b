package domain

import (
	"strings"
	"time"
)

// Currency is the settlement currency for every price in the storefront.
const Currency = "PKR"

// Role constants mirror the role claim carried on bearer tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// OrderStatus enumerates the fulfilment states an order moves through.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusReturned       OrderStatus = "Returned"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

var orderStatusLookup = map[string]OrderStatus{
	"pending":          OrderStatusPending,
	"processing":       OrderStatusProcessing,
	"shipped":          OrderStatusShipped,
	"out for delivery": OrderStatusOutForDelivery,
	"outfordelivery":   OrderStatusOutForDelivery,
	"out-for-delivery": OrderStatusOutForDelivery,
	"out_for_delivery": OrderStatusOutForDelivery,
	"delivered":        OrderStatusDelivered,
	"returned":         OrderStatusReturned,
	"cancelled":        OrderStatusCancelled,
	"canceled":         OrderStatusCancelled,
}

// ParseOrderStatus resolves a case-insensitive status name to its canonical value.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	status, ok := orderStatusLookup[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusReturned,
		OrderStatusCancelled,
	}
}

// PaymentMethod is the closed set of accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCOD       PaymentMethod = "COD"
	PaymentMethodJazzCash  PaymentMethod = "JazzCash"
	PaymentMethodEasypaisa PaymentMethod = "Easypaisa"
	PaymentMethodCard      PaymentMethod = "Card"
)

// ParsePaymentMethod resolves a case-insensitive payment method name.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cod", "cash on delivery":
		return PaymentMethodCOD, true
	case "jazzcash":
		return PaymentMethodJazzCash, true
	case "easypaisa":
		return PaymentMethodEasypaisa, true
	case "card":
		return PaymentMethodCard, true
	default:
		return "", false
	}
}

// Deferred reports whether settlement happens on delivery rather than at checkout.
func (m PaymentMethod) Deferred() bool {
	return m == PaymentMethodCOD
}

// MobileWallet reports whether the method charges a mobile wallet account.
func (m PaymentMethod) MobileWallet() bool {
	return m == PaymentMethodJazzCash || m == PaymentMethodEasypaisa
}

// DeliveryMethod selects the shipping rate applied at checkout.
type DeliveryMethod string

const (
	DeliveryMethodStandard DeliveryMethod = "Standard"
	DeliveryMethodExpress  DeliveryMethod = "Express"
)

// ParseDeliveryMethod resolves a delivery method name. Empty input selects Standard.
func ParseDeliveryMethod(raw string) (DeliveryMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "standard":
		return DeliveryMethodStandard, true
	case "express":
		return DeliveryMethodExpress, true
	default:
		return "", false
	}
}

// Payment result statuses recorded on orders.
const (
	PaymentStatusCompleted  = "Completed"
	PaymentStatusPendingCOD = "Pending COD"
)

// Product is a catalog entry. Only the stock counter is mutated by checkout.
type Product struct {
	ID                 string
	Name               string
	SKU                string
	Brand              string
	Description        string
	Images             []string
	OriginalPrice      int64
	SalePrice          *int64
	DiscountPercentage int
	OnSale             bool
	StockQuantity      int
	Category           string
	Badge              string
	Slug               string
	Published          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CartItem captures a product line with the price observed when it was added.
type CartItem struct {
	ProductID string
	Name      string
	Image     string
	Price     int64
	Quantity  int
}

// Cart is the per-customer basket. TotalPrice always equals ComputeCartTotal(Items).
type Cart struct {
	UserID     string
	Items      []CartItem
	TotalPrice int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	Address    string
	Apartment  string
	City       string
	Province   string
	PostalCode string
	Phone      string
}

// PaymentResult records the gateway outcome embedded in an order.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// CourierInfo identifies the carrier handling a shipped order.
type CourierInfo struct {
	CourierName string
	TrackingID  string
}

// Customer is the buyer snapshot kept on the order for later notifications.
type Customer struct {
	Name  string
	Email string
}

// OrderItem is an immutable copy of a cart line at checkout time.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Price     int64
	Quantity  int
}

// Order is the purchase record plus its mutable fulfilment envelope.
type Order struct {
	ID              string
	UserID          string
	Customer        Customer
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	PaymentResult   PaymentResult
	DeliveryMethod  DeliveryMethod
	ItemsPrice      int64
	ShippingPrice   int64
	TotalPrice      int64
	IsPaid          bool
	PaidAt          *time.Time
	Status          OrderStatus
	CourierInfo     CourierInfo
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StockLine is a product quantity committed by an order.
type StockLine struct {
	ProductID string
	Quantity  int
}

// StockLines aggregates order items per product so each product is decremented once.
func (o Order) StockLines() []StockLine {
	index := make(map[string]int, len(o.Items))
	lines := make([]StockLine, 0, len(o.Items))
	for _, item := range o.Items {
		if pos, ok := index[item.ProductID]; ok {
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// WishlistItem references a saved product.
type WishlistItem struct {
	ProductID string
	AddedAt   time.Time
}

// Wishlist is the set of products a customer saved for later.
type Wishlist struct {
	UserID    string
	Items     []WishlistItem
	UpdatedAt time.Time
}

// Contains reports whether the product is saved.
func (w Wishlist) Contains(productID string) bool {
	for _, item := range w.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// OffsetPage packages a page of results addressed by page number.
type OffsetPage[T any] struct {
	Items []T
	Page  int
	Pages int
	Total int
}

// PageCount returns the number of pages needed to hold total items.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
