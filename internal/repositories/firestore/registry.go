package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
	"github.com/techmall/storefront-api/internal/repositories"
)

// Registry exposes the Firestore repositories sharing one provider.
type Registry struct {
	provider  *pfirestore.Provider
	products  *ProductRepository
	carts     *CartRepository
	orders    *OrderRepository
	wishlists *WishlistRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every repository onto provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	wishlists, err := NewWishlistRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:  provider,
		products:  products,
		carts:     carts,
		orders:    orders,
		wishlists: wishlists,
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Carts() repositories.CartRepository         { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Wishlists() repositories.WishlistRepository { return r.wishlists }

// Ping checks that Firestore answers.
func (r *Registry) Ping(ctx context.Context) error { return r.provider.Ping(ctx) }

// Close releases the shared client.
func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }
