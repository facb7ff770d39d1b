package repositories

import (
	"context"

	domain "github.com/techmall/storefront-api/internal/domain"
)

// Registry exposes the repositories backing one storage driver.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Wishlists() WishlistRepository
	Ping(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category      string
	PublishedOnly bool
	Page          int
	PageSize      int
}

// ProductRepository is the catalog store. DecrementStock is the only stock mutation.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.OffsetPage[domain.Product], error)
	Save(ctx context.Context, product domain.Product) error
	// DecrementStock subtracts qty only when the current stock covers it.
	DecrementStock(ctx context.Context, productID string, qty int) error
}

// CartRepository persists one cart document per customer.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	DeleteCart(ctx context.Context, userID string) error
}

// OrderListFilter drives the admin order listing.
type OrderListFilter struct {
	Status   *domain.OrderStatus
	OrderID  string
	Page     int
	PageSize int
}

// OrderRepository persists orders. Orders are never deleted.
type OrderRepository interface {
	// Commit writes the new order and decrements stock for its lines in one atomic unit.
	// When any line lacks stock nothing is written and an InventoryError with
	// InventoryErrorInsufficientStock is returned.
	Commit(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.OffsetPage[domain.Order], error)
	Stats(ctx context.Context) (domain.OrderStats, error)
}

// WishlistRepository persists the saved-product set per customer.
type WishlistRepository interface {
	Get(ctx context.Context, userID string) (domain.Wishlist, error)
	Add(ctx context.Context, userID string, item domain.WishlistItem) (domain.Wishlist, error)
	Remove(ctx context.Context, userID string, productID string) (domain.Wishlist, error)
}
