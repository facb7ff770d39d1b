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
	ErrWishlistInvalidInput    = errors.New("wishlist: invalid input")
	ErrWishlistProductNotFound = errors.New("wishlist: product not found")
	ErrWishlistPersistence     = errors.New("wishlist: persistence failure")
)

type WishlistServiceDeps struct {
	Wishlists repositories.WishlistRepository
	Products  repositories.ProductRepository
	Clock     func() time.Time
}

type wishlistService struct {
	wishlists repositories.WishlistRepository
	products  repositories.ProductRepository
	now       func() time.Time
}

func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Wishlists == nil {
		return nil, errors.New("wishlist service: wishlist repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("wishlist service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &wishlistService{
		wishlists: deps.Wishlists,
		products:  deps.Products,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *wishlistService) GetWishlist(ctx context.Context, userID string) (WishlistView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return WishlistView{}, ErrWishlistInvalidInput
	}
	list, err := s.wishlists.Get(ctx, userID)
	if err != nil {
		return WishlistView{}, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	return s.populate(ctx, userID, list)
}

// AddItem is idempotent: saving a product twice keeps one entry.
func (s *wishlistService) AddItem(ctx context.Context, userID string, productID string) (WishlistView, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return WishlistView{}, ErrWishlistInvalidInput
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if repositories.IsNotFound(err) {
			return WishlistView{}, ErrWishlistProductNotFound
		}
		return WishlistView{}, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	list, err := s.wishlists.Add(ctx, userID, domain.WishlistItem{ProductID: productID, AddedAt: s.now()})
	if err != nil {
		return WishlistView{}, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	return s.populate(ctx, userID, list)
}

func (s *wishlistService) RemoveItem(ctx context.Context, userID string, productID string) (WishlistView, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return WishlistView{}, ErrWishlistInvalidInput
	}
	list, err := s.wishlists.Remove(ctx, userID, productID)
	if err != nil {
		return WishlistView{}, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	return s.populate(ctx, userID, list)
}

func (s *wishlistService) Contains(ctx context.Context, userID string, productID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return false, ErrWishlistInvalidInput
	}
	list, err := s.wishlists.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	return list.Contains(productID), nil
}

// populate joins saved entries with the catalog. Deleted products are dropped from the view.
func (s *wishlistService) populate(ctx context.Context, userID string, list domain.Wishlist) (WishlistView, error) {
	view := WishlistView{UserID: userID, Items: []WishlistEntry{}}
	if len(list.Items) == 0 {
		return view, nil
	}
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return WishlistView{}, fmt.Errorf("%w: %v", ErrWishlistPersistence, err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range list.Items {
		if product, ok := byID[item.ProductID]; ok {
			view.Items = append(view.Items, WishlistEntry{Product: product, AddedAt: item.AddedAt})
		}
	}
	return view, nil
}
