package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/httpx"
)

const maxJSONBodySize = httpx.MaxJSONBodySize

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, maxJSONBodySize, dst); err != nil {
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return false
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	return true
}

func unavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service is unavailable", http.StatusServiceUnavailable))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	value := formatTime(*t)
	return &value
}

type productPayload struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	SKU                string   `json:"sku,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	Description        string   `json:"description,omitempty"`
	Images             []string `json:"images"`
	OriginalPrice      int64    `json:"originalPrice"`
	SalePrice          *int64   `json:"salePrice,omitempty"`
	Price              int64    `json:"price"`
	DiscountPercentage int      `json:"discountPercentage"`
	OnSale             bool     `json:"onSale"`
	StockQuantity      int      `json:"stockQuantity"`
	Status             string   `json:"status"`
	Category           string   `json:"category,omitempty"`
	Badge              string   `json:"badge,omitempty"`
	Slug               string   `json:"slug"`
	Published          bool     `json:"published"`
	Currency           string   `json:"currency"`
	CreatedAt          string   `json:"createdAt,omitempty"`
	UpdatedAt          string   `json:"updatedAt,omitempty"`
}

func buildProductPayload(p domain.Product) productPayload {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productPayload{
		ID:                 p.ID,
		Name:               p.Name,
		SKU:                p.SKU,
		Brand:              p.Brand,
		Description:        p.Description,
		Images:             images,
		OriginalPrice:      p.OriginalPrice,
		SalePrice:          p.SalePrice,
		Price:              p.EffectivePrice(),
		DiscountPercentage: p.DiscountPercentage,
		OnSale:             p.OnSale,
		StockQuantity:      p.StockQuantity,
		Status:             p.Status(),
		Category:           p.Category,
		Badge:              p.Badge,
		Slug:               p.Slug,
		Published:          p.Published,
		Currency:           domain.Currency,
		CreatedAt:          formatTime(p.CreatedAt),
		UpdatedAt:          formatTime(p.UpdatedAt),
	}
}

type lineItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type cartPayload struct {
	UserID     string            `json:"userId"`
	Items      []lineItemPayload `json:"items"`
	ItemsCount int               `json:"itemsCount"`
	TotalPrice int64             `json:"totalPrice"`
	Currency   string            `json:"currency"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	items := make([]lineItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, lineItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return cartPayload{
		UserID:     cart.UserID,
		Items:      items,
		ItemsCount: len(items),
		TotalPrice: cart.TotalPrice,
		Currency:   domain.Currency,
		UpdatedAt:  formatTime(cart.UpdatedAt),
	}
}

type addressPayload struct {
	Address    string `json:"address"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

// paymentResultPayload keeps the snake_case keys storefront clients already read.
type paymentResultPayload struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status,omitempty"`
	UpdateTime   string `json:"update_time,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

type courierPayload struct {
	CourierName string `json:"courierName,omitempty"`
	TrackingID  string `json:"trackingId,omitempty"`
}

type customerPayload struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type orderPayload struct {
	ID              string               `json:"id"`
	User            string               `json:"user"`
	Customer        customerPayload      `json:"customer"`
	OrderItems      []lineItemPayload    `json:"orderItems"`
	ShippingAddress addressPayload       `json:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod"`
	PaymentResult   paymentResultPayload `json:"paymentResult"`
	DeliveryMethod  string               `json:"deliveryMethod"`
	ItemsPrice      int64                `json:"itemsPrice"`
	ShippingPrice   int64                `json:"shippingPrice"`
	TotalPrice      int64                `json:"totalPrice"`
	Currency        string               `json:"currency"`
	IsPaid          bool                 `json:"isPaid"`
	PaidAt          *string              `json:"paidAt,omitempty"`
	OrderStatus     string               `json:"orderStatus"`
	CourierInfo     courierPayload       `json:"courierInfo"`
	DeliveredAt     *string              `json:"deliveredAt,omitempty"`
	CreatedAt       string               `json:"createdAt,omitempty"`
	UpdatedAt       string               `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]lineItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	addr := order.ShippingAddress
	return orderPayload{
		ID:         order.ID,
		User:       order.UserID,
		Customer:   customerPayload{Name: order.Customer.Name, Email: order.Customer.Email},
		OrderItems: items,
		ShippingAddress: addressPayload{
			Address:    addr.Address,
			Apartment:  addr.Apartment,
			City:       addr.City,
			Province:   addr.Province,
			PostalCode: addr.PostalCode,
			Phone:      addr.Phone,
		},
		PaymentMethod: string(order.PaymentMethod),
		PaymentResult: paymentResultPayload{
			ID:           order.PaymentResult.ID,
			Status:       order.PaymentResult.Status,
			UpdateTime:   order.PaymentResult.UpdateTime,
			EmailAddress: order.PaymentResult.EmailAddress,
		},
		DeliveryMethod: string(order.DeliveryMethod),
		ItemsPrice:     order.ItemsPrice,
		ShippingPrice:  order.ShippingPrice,
		TotalPrice:     order.TotalPrice,
		Currency:       domain.Currency,
		IsPaid:         order.IsPaid,
		PaidAt:         formatTimePtr(order.PaidAt),
		OrderStatus:    string(order.Status),
		CourierInfo: courierPayload{
			CourierName: order.CourierInfo.CourierName,
			TrackingID:  order.CourierInfo.TrackingID,
		},
		DeliveredAt: formatTimePtr(order.DeliveredAt),
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
}

func buildOrderPayloads(orders []domain.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		out = append(out, buildOrderPayload(order))
	}
	return out
}
