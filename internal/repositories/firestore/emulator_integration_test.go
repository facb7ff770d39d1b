//go:build integration

package firestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	domain "github.com/techmall/storefront-api/internal/domain"
	pconfig "github.com/techmall/storefront-api/internal/platform/config"
	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
	"github.com/techmall/storefront-api/internal/repositories"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func startEmulator(t *testing.T) *Registry {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        firestoreEmulatorImage,
			ExposedPorts: []string{"8080/tcp"},
			Cmd: []string{
				"gcloud", "beta", "emulators", "firestore", "start",
				"--host-port=0.0.0.0:8080", "--quiet",
			},
			WaitingFor: wait.ForLog("Dev App Server is now running").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start firestore emulator: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("emulator endpoint: %v", err)
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "storefront-test",
		EmulatorHost: endpoint,
	})
	reg, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func TestFirestoreRegistryIntegration(t *testing.T) {
	reg := startEmulator(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := reg.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, p := range []domain.Product{
		{ID: "p1", Name: "Keyboard", OriginalPrice: 1000, StockQuantity: 3, Published: true, Category: "peripherals", CreatedAt: now},
		{ID: "p2", Name: "Mouse", OriginalPrice: 500, StockQuantity: 1, Published: true, Category: "peripherals", CreatedAt: now.Add(time.Second)},
	} {
		if err := reg.Products().Save(ctx, p); err != nil {
			t.Fatalf("save product: %v", err)
		}
	}

	t.Run("commit rolls back on short stock", func(t *testing.T) {
		err := reg.Orders().Commit(ctx, domain.Order{
			ID:        "ord_short",
			UserID:    "u1",
			Status:    domain.OrderStatusPending,
			CreatedAt: now,
			Items: []domain.OrderItem{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "p2", Quantity: 2},
			},
		})
		invErr, ok := repositories.AsInventoryError(err)
		if !ok || invErr.ProductID != "p2" {
			t.Fatalf("expected insufficient stock on p2, got %v", err)
		}
		p1, err := reg.Products().FindByID(ctx, "p1")
		if err != nil {
			t.Fatalf("find p1: %v", err)
		}
		if p1.StockQuantity != 3 {
			t.Fatalf("expected p1 stock untouched, got %d", p1.StockQuantity)
		}
		if _, err := reg.Orders().FindByID(ctx, "ord_short"); !repositories.IsNotFound(err) {
			t.Fatalf("expected order absent, got %v", err)
		}
	})

	t.Run("concurrent commits never oversell", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, id := range []string{"ord_a", "ord_b"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				errs <- reg.Orders().Commit(ctx, domain.Order{
					ID:         id,
					UserID:     "u1",
					Status:     domain.OrderStatusPending,
					TotalPrice: 2200,
					CreatedAt:  now,
					Items:      []domain.OrderItem{{ProductID: "p1", Quantity: 2, Price: 1000}},
				})
			}(id)
		}
		wg.Wait()
		close(errs)
		ok := 0
		for err := range errs {
			if err == nil {
				ok++
			}
		}
		if ok != 1 {
			t.Fatalf("expected exactly one commit, got %d", ok)
		}
		p1, _ := reg.Products().FindByID(ctx, "p1")
		if p1.StockQuantity != 1 {
			t.Fatalf("expected stock 1, got %d", p1.StockQuantity)
		}
	})

	t.Run("stats and listing", func(t *testing.T) {
		stats, err := reg.Orders().Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.TotalOrders != 1 || stats.PendingOrders != 1 || stats.TotalRevenue != 2200 || stats.PaidOrders != 0 {
			t.Fatalf("unexpected stats %+v", stats)
		}
		page, err := reg.Products().List(ctx, repositories.ProductListFilter{PublishedOnly: true, Page: 1, PageSize: 1})
		if err != nil {
			t.Fatalf("list products: %v", err)
		}
		if page.Total != 2 || page.Pages != 2 || len(page.Items) != 1 || page.Items[0].ID != "p2" {
			t.Fatalf("unexpected product page %+v", page)
		}
	})

	t.Run("wishlist set semantics", func(t *testing.T) {
		if _, err := reg.Wishlists().Add(ctx, "u1", domain.WishlistItem{ProductID: "p1", AddedAt: now}); err != nil {
			t.Fatalf("add: %v", err)
		}
		list, err := reg.Wishlists().Add(ctx, "u1", domain.WishlistItem{ProductID: "p1", AddedAt: now})
		if err != nil {
			t.Fatalf("add again: %v", err)
		}
		if len(list.Items) != 1 {
			t.Fatalf("expected one item, got %d", len(list.Items))
		}
		list, _ = reg.Wishlists().Remove(ctx, "u1", "p1")
		if len(list.Items) != 0 {
			t.Fatalf("expected empty list, got %d", len(list.Items))
		}
	})
}
