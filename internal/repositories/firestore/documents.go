package firestore

import (
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
)

type productDocument struct {
	Name               string    `firestore:"name"`
	SKU                string    `firestore:"sku"`
	Brand              string    `firestore:"brand,omitempty"`
	Description        string    `firestore:"description,omitempty"`
	Images             []string  `firestore:"images,omitempty"`
	OriginalPrice      int64     `firestore:"originalPrice"`
	SalePrice          *int64    `firestore:"salePrice,omitempty"`
	DiscountPercentage int       `firestore:"discountPercentage"`
	OnSale             bool      `firestore:"onSale"`
	StockQuantity      int       `firestore:"stockQuantity"`
	Category           string    `firestore:"category"`
	Badge              string    `firestore:"badge,omitempty"`
	Slug               string    `firestore:"slug"`
	Published          bool      `firestore:"published"`
	CreatedAt          time.Time `firestore:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt"`
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		Name:               p.Name,
		SKU:                p.SKU,
		Brand:              p.Brand,
		Description:        p.Description,
		Images:             p.Images,
		OriginalPrice:      p.OriginalPrice,
		SalePrice:          p.SalePrice,
		DiscountPercentage: p.DiscountPercentage,
		OnSale:             p.OnSale,
		StockQuantity:      p.StockQuantity,
		Category:           p.Category,
		Badge:              p.Badge,
		Slug:               p.Slug,
		Published:          p.Published,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:                 id,
		Name:               d.Name,
		SKU:                d.SKU,
		Brand:              d.Brand,
		Description:        d.Description,
		Images:             d.Images,
		OriginalPrice:      d.OriginalPrice,
		SalePrice:          d.SalePrice,
		DiscountPercentage: d.DiscountPercentage,
		OnSale:             d.OnSale,
		StockQuantity:      d.StockQuantity,
		Category:           d.Category,
		Badge:              d.Badge,
		Slug:               d.Slug,
		Published:          d.Published,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type cartItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
}

type cartDocument struct {
	Items      []cartItemDocument `firestore:"items"`
	TotalPrice int64              `firestore:"totalPrice"`
	CreatedAt  time.Time          `firestore:"createdAt"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

func newCartDocument(c domain.Cart) cartDocument {
	items := make([]cartItemDocument, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, cartItemDocument(item))
	}
	return cartDocument{
		Items:      items,
		TotalPrice: c.TotalPrice,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func (d cartDocument) toDomain(userID string) domain.Cart {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem(item))
	}
	return domain.Cart{
		UserID:     userID,
		Items:      items,
		TotalPrice: d.TotalPrice,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
}

type shippingAddressDocument struct {
	Address    string `firestore:"address"`
	Apartment  string `firestore:"apartment,omitempty"`
	City       string `firestore:"city"`
	Province   string `firestore:"province"`
	PostalCode string `firestore:"postalCode,omitempty"`
	Phone      string `firestore:"phone"`
}

type paymentResultDocument struct {
	ID           string `firestore:"id,omitempty"`
	Status       string `firestore:"status"`
	UpdateTime   string `firestore:"updateTime,omitempty"`
	EmailAddress string `firestore:"emailAddress,omitempty"`
}

type courierDocument struct {
	CourierName string `firestore:"courierName,omitempty"`
	TrackingID  string `firestore:"trackingId,omitempty"`
}

type customerDocument struct {
	Name  string `firestore:"name"`
	Email string `firestore:"email"`
}

type orderDocument struct {
	UserID          string                  `firestore:"userId"`
	Customer        customerDocument        `firestore:"customer"`
	Items           []orderItemDocument     `firestore:"orderItems"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	PaymentResult   paymentResultDocument   `firestore:"paymentResult"`
	DeliveryMethod  string                  `firestore:"deliveryMethod"`
	ItemsPrice      int64                   `firestore:"itemsPrice"`
	ShippingPrice   int64                   `firestore:"shippingPrice"`
	TotalPrice      int64                   `firestore:"totalPrice"`
	IsPaid          bool                    `firestore:"isPaid"`
	PaidAt          *time.Time              `firestore:"paidAt"`
	Status          string                  `firestore:"status"`
	CourierInfo     courierDocument         `firestore:"courierInfo"`
	DeliveredAt     *time.Time              `firestore:"deliveredAt"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDocument(item))
	}
	return orderDocument{
		UserID:          o.UserID,
		Customer:        customerDocument(o.Customer),
		Items:           items,
		ShippingAddress: shippingAddressDocument(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentResult:   paymentResultDocument(o.PaymentResult),
		DeliveryMethod:  string(o.DeliveryMethod),
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TotalPrice:      o.TotalPrice,
		IsPaid:          o.IsPaid,
		PaidAt:          utcPtr(o.PaidAt),
		Status:          string(o.Status),
		CourierInfo:     courierDocument(o.CourierInfo),
		DeliveredAt:     utcPtr(o.DeliveredAt),
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem(item))
	}
	return domain.Order{
		ID:              id,
		UserID:          d.UserID,
		Customer:        domain.Customer(d.Customer),
		Items:           items,
		ShippingAddress: domain.ShippingAddress(d.ShippingAddress),
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		PaymentResult:   domain.PaymentResult(d.PaymentResult),
		DeliveryMethod:  domain.DeliveryMethod(d.DeliveryMethod),
		ItemsPrice:      d.ItemsPrice,
		ShippingPrice:   d.ShippingPrice,
		TotalPrice:      d.TotalPrice,
		IsPaid:          d.IsPaid,
		PaidAt:          d.PaidAt,
		Status:          domain.OrderStatus(d.Status),
		CourierInfo:     domain.CourierInfo(d.CourierInfo),
		DeliveredAt:     d.DeliveredAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type wishlistItemDocument struct {
	ProductID string    `firestore:"productId"`
	AddedAt   time.Time `firestore:"addedAt"`
}

type wishlistDocument struct {
	Items     []wishlistItemDocument `firestore:"items"`
	UpdatedAt time.Time              `firestore:"updatedAt"`
}

func (d wishlistDocument) toDomain(userID string) domain.Wishlist {
	items := make([]domain.WishlistItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.WishlistItem(item))
	}
	return domain.Wishlist{UserID: userID, Items: items, UpdatedAt: d.UpdatedAt}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
