package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/config"
	"github.com/techmall/storefront-api/internal/repositories"
	"github.com/techmall/storefront-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Stats    services.OrderStatsService
	Wishlist services.WishlistService
}

// Collaborators are the runtime pieces built outside the repository layer.
type Collaborators struct {
	Payments        services.PaymentCharger
	Notifier        services.OrderNotifier
	Logger          services.Logger
	ObserveCheckout func(method, outcome string)
	Clock           func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the service graph on top of reg. Tests can pass the in-memory registry.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Collaborators) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases the repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// ShippingRates converts configured rates keyed by delivery method name.
func ShippingRates(raw map[string]int64) (map[domain.DeliveryMethod]int64, error) {
	rates := make(map[domain.DeliveryMethod]int64, len(raw))
	for name, rate := range raw {
		method, ok := domain.ParseDeliveryMethod(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("unknown delivery method %q in shipping rates", name)
		}
		rates[method] = rate
	}
	return rates, nil
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, deps Collaborators) (Services, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	products := reg.Products()

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: products,
		Clock:    clock,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: products,
		Clock:    clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}

	rates, err := ShippingRates(cfg.Shipping.Rates)
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:         reg.Carts(),
		Products:      products,
		Orders:        reg.Orders(),
		Payments:      deps.Payments,
		Notifier:      deps.Notifier,
		ShippingRates: rates,
		Clock:         clock,
		Logger:        deps.Logger,
		Observe:       deps.ObserveCheckout,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Notifier: deps.Notifier,
		Clock:    clock,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}

	statsSvc, err := services.NewOrderStatsService(services.OrderStatsServiceDeps{Orders: reg.Orders()})
	if err != nil {
		return Services{}, fmt.Errorf("build order stats service: %w", err)
	}

	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{
		Wishlists: reg.Wishlists(),
		Products:  products,
		Clock:     clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wishlist service: %w", err)
	}

	return Services{
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Orders:   orderSvc,
		Stats:    statsSvc,
		Wishlist: wishlistSvc,
	}, nil
}
