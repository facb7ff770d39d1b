package mongo

import (
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
)

type productDocument struct {
	ID                 string    `bson:"_id"`
	Name               string    `bson:"name"`
	SKU                string    `bson:"sku"`
	Brand              string    `bson:"brand,omitempty"`
	Description        string    `bson:"description,omitempty"`
	Images             []string  `bson:"images,omitempty"`
	OriginalPrice      int64     `bson:"originalPrice"`
	SalePrice          *int64    `bson:"salePrice,omitempty"`
	DiscountPercentage int       `bson:"discountPercentage"`
	OnSale             bool      `bson:"onSale"`
	StockQuantity      int       `bson:"stockQuantity"`
	Category           string    `bson:"category"`
	Badge              string    `bson:"badge,omitempty"`
	Slug               string    `bson:"slug"`
	Published          bool      `bson:"published"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:                 d.ID,
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

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		ID:                 p.ID,
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

type lineDocument struct {
	ProductID string `bson:"productId"`
	Name      string `bson:"name"`
	Image     string `bson:"image,omitempty"`
	Price     int64  `bson:"price"`
	Quantity  int    `bson:"quantity"`
}

type cartDocument struct {
	UserID     string         `bson:"_id"`
	Items      []lineDocument `bson:"items"`
	TotalPrice int64          `bson:"totalPrice"`
	CreatedAt  time.Time      `bson:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt"`
}

func newCartDocument(c domain.Cart) cartDocument {
	items := make([]lineDocument, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, lineDocument(item))
	}
	return cartDocument{
		UserID:     c.UserID,
		Items:      items,
		TotalPrice: c.TotalPrice,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func (d cartDocument) toDomain() domain.Cart {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem(item))
	}
	return domain.Cart{
		UserID:     d.UserID,
		Items:      items,
		TotalPrice: d.TotalPrice,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type orderDocument struct {
	ID              string         `bson:"_id"`
	UserID          string         `bson:"userId"`
	Customer        customerDoc    `bson:"customer"`
	Items           []lineDocument `bson:"orderItems"`
	ShippingAddress addressDoc     `bson:"shippingAddress"`
	PaymentMethod   string         `bson:"paymentMethod"`
	PaymentResult   paymentDoc     `bson:"paymentResult"`
	DeliveryMethod  string         `bson:"deliveryMethod"`
	ItemsPrice      int64          `bson:"itemsPrice"`
	ShippingPrice   int64          `bson:"shippingPrice"`
	TotalPrice      int64          `bson:"totalPrice"`
	IsPaid          bool           `bson:"isPaid"`
	PaidAt          *time.Time     `bson:"paidAt"`
	Status          string         `bson:"status"`
	CourierInfo     courierDoc     `bson:"courierInfo"`
	DeliveredAt     *time.Time     `bson:"deliveredAt"`
	CreatedAt       time.Time      `bson:"createdAt"`
	UpdatedAt       time.Time      `bson:"updatedAt"`
}

type customerDoc struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

type addressDoc struct {
	Address    string `bson:"address"`
	Apartment  string `bson:"apartment,omitempty"`
	City       string `bson:"city"`
	Province   string `bson:"province"`
	PostalCode string `bson:"postalCode,omitempty"`
	Phone      string `bson:"phone"`
}

type paymentDoc struct {
	ID           string `bson:"id,omitempty"`
	Status       string `bson:"status"`
	UpdateTime   string `bson:"update_time,omitempty"`
	EmailAddress string `bson:"email_address,omitempty"`
}

type courierDoc struct {
	CourierName string `bson:"courierName,omitempty"`
	TrackingID  string `bson:"trackingId,omitempty"`
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]lineDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineDocument(item))
	}
	return orderDocument{
		ID:              o.ID,
		UserID:          o.UserID,
		Customer:        customerDoc(o.Customer),
		Items:           items,
		ShippingAddress: addressDoc(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentResult:   paymentDoc(o.PaymentResult),
		DeliveryMethod:  string(o.DeliveryMethod),
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TotalPrice:      o.TotalPrice,
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		Status:          string(o.Status),
		CourierInfo:     courierDoc(o.CourierInfo),
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem(item))
	}
	return domain.Order{
		ID:              d.ID,
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

type wishlistItemDoc struct {
	ProductID string    `bson:"productId"`
	AddedAt   time.Time `bson:"addedAt"`
}

type wishlistDocument struct {
	UserID    string            `bson:"_id"`
	Items     []wishlistItemDoc `bson:"items"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

func (d wishlistDocument) toDomain() domain.Wishlist {
	items := make([]domain.WishlistItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.WishlistItem(item))
	}
	return domain.Wishlist{UserID: d.UserID, Items: items, UpdatedAt: d.UpdatedAt}
}

type statsDocument struct {
	Revenue int64 `bson:"revenue"`
	Total   int   `bson:"total"`
	Pending int   `bson:"pending"`
	Paid    int   `bson:"paid"`
}
