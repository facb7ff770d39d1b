package services

import (
	"context"
	"errors"
	"testing"

	"github.com/techmall/storefront-api/internal/repositories/memory"
)

func TestWishlistServiceLifecycle(t *testing.T) {
	reg := memory.NewRegistry()
	svc, err := NewWishlistService(WishlistServiceDeps{Wishlists: reg.Wishlists(), Products: reg.Products(), Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewWishlistService: %v", err)
	}
	seedProduct(t, reg, "p1", 1000, 5)
	seedProduct(t, reg, "p2", 500, 5)
	ctx := context.Background()

	view, err := svc.GetWishlist(ctx, "u1")
	if err != nil || len(view.Items) != 0 {
		t.Fatalf("expected empty wishlist, got %+v (%v)", view, err)
	}

	if _, err := svc.AddItem(ctx, "u1", "p1"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p1"); err != nil {
		t.Fatalf("AddItem twice: %v", err)
	}
	view, err = svc.AddItem(ctx, "u1", "p2")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(view.Items) != 2 || view.Items[0].Product.Name != "Product p1" {
		t.Fatalf("expected two populated entries, got %+v", view)
	}

	if _, err := svc.AddItem(ctx, "u1", "missing"); !errors.Is(err, ErrWishlistProductNotFound) {
		t.Fatalf("expected ErrWishlistProductNotFound, got %v", err)
	}

	ok, err := svc.Contains(ctx, "u1", "p2")
	if err != nil || !ok {
		t.Fatalf("expected p2 saved, got %v (%v)", ok, err)
	}

	view, err = svc.RemoveItem(ctx, "u1", "p2")
	if err != nil || len(view.Items) != 1 {
		t.Fatalf("expected one entry after removal, got %+v (%v)", view, err)
	}
	if ok, _ := svc.Contains(ctx, "u1", "p2"); ok {
		t.Fatalf("expected p2 removed")
	}
}

func TestWishlistServiceDropsDeletedProducts(t *testing.T) {
	reg := memory.NewRegistry()
	svc, _ := NewWishlistService(WishlistServiceDeps{Wishlists: reg.Wishlists(), Products: &deletedProducts{ProductRepository: reg.Products(), gone: "p2"}})
	seedProduct(t, reg, "p1", 1000, 5)
	seedProduct(t, reg, "p2", 500, 5)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		if _, err := reg.Wishlists().Add(ctx, "u1", wishlistItem(id)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	view, err := svc.GetWishlist(ctx, "u1")
	if err != nil {
		t.Fatalf("GetWishlist: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Product.ID != "p1" {
		t.Fatalf("expected deleted product dropped, got %+v", view)
	}
}
