package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

var (
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartProductNotFound indicates the product is missing or unpublished.
	ErrCartProductNotFound = errors.New("cart: product not found")
	// ErrCartItemNotFound indicates the product is not in the cart.
	ErrCartItemNotFound = errors.New("cart: item not found")
	// ErrCartInsufficientStock indicates the requested quantity exceeds stock.
	ErrCartInsufficientStock = errors.New("cart: insufficient stock")
	ErrCartPersistence       = errors.New("cart: persistence failure")
)

// CartServiceDeps wires the cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Clock    func() time.Time
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	now      func() time.Time
}

func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

// GetCart creates an empty cart on first access.
func (s *cartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, ErrCartInvalidInput
	}
	cart, found, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if found {
		return cart, nil
	}
	saved, err := s.carts.UpsertCart(ctx, cart)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartPersistence, err)
	}
	return saved, nil
}

// AddItem snapshots the product's current effective price. A line already in the cart keeps
// its captured price.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.Cart, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	qty := cmd.Quantity
	if qty == 0 {
		qty = 1
	}
	if userID == "" || productID == "" || qty < 0 {
		return domain.Cart{}, ErrCartInvalidInput
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, ErrCartProductNotFound
		}
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartPersistence, err)
	}
	if !product.Published {
		return domain.Cart{}, ErrCartProductNotFound
	}

	cart, _, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if qty > product.StockQuantity-cart.QuantityOf(productID) {
		return domain.Cart{}, fmt.Errorf("%w: only %d of %s available", ErrCartInsufficientStock, product.StockQuantity, product.Name)
	}

	cart.AddItem(domain.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.PrimaryImage(),
		Price:     product.EffectivePrice(),
		Quantity:  qty,
	})
	cart.UpdatedAt = s.now()

	saved, err := s.carts.UpsertCart(ctx, cart)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartPersistence, err)
	}
	return saved, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID string, productID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return domain.Cart{}, ErrCartInvalidInput
	}
	cart, found, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !found || !cart.RemoveItem(productID) {
		return domain.Cart{}, ErrCartItemNotFound
	}
	cart.UpdatedAt = s.now()

	saved, err := s.carts.UpsertCart(ctx, cart)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartPersistence, err)
	}
	return saved, nil
}

// load returns the stored cart or a fresh empty one.
func (s *cartService) load(ctx context.Context, userID string) (domain.Cart, bool, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			now := s.now()
			return domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, false, nil
		}
		return domain.Cart{}, false, fmt.Errorf("%w: %v", ErrCartPersistence, err)
	}
	cart.TotalPrice = domain.ComputeCartTotal(cart.Items)
	return cart, true, nil
}
