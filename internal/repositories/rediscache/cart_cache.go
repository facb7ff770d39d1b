// Package rediscache fronts a CartRepository with a Redis read-through cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

const (
	defaultTTL = 15 * time.Minute
	maxJitter  = 5 * time.Minute
)

// Logger receives cache failures; they never fail the request.
type Logger func(ctx context.Context, event string, fields map[string]any)

// CartCache decorates a CartRepository. Writes go to the store first and then refresh the
// cached copy; deletes evict before touching the store.
type CartCache struct {
	next   repositories.CartRepository
	client redis.UniversalClient
	ttl    time.Duration
	jitter func() time.Duration
	logger Logger
}

var _ repositories.CartRepository = (*CartCache)(nil)

// Option customises the cache.
type Option func(*CartCache)

// WithTTL overrides the base expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *CartCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger routes cache failures to logger.
func WithLogger(logger Logger) Option {
	return func(c *CartCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithoutJitter disables randomised expiry, mostly for tests.
func WithoutJitter() Option {
	return func(c *CartCache) {
		c.jitter = func() time.Duration { return 0 }
	}
}

// NewCartCache wraps next with a cache held in client.
func NewCartCache(next repositories.CartRepository, client redis.UniversalClient, opts ...Option) (*CartCache, error) {
	if next == nil {
		return nil, errors.New("cart cache requires backing repository")
	}
	if client == nil {
		return nil, errors.New("cart cache requires redis client")
	}
	c := &CartCache{
		next:   next,
		client: client,
		ttl:    defaultTTL,
		jitter: func() time.Duration { return time.Duration(rand.Int64N(int64(maxJitter))) },
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *CartCache) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	switch {
	case err == nil:
		var cart domain.Cart
		if err := json.Unmarshal(data, &cart); err == nil {
			return cart, nil
		}
		c.logger(ctx, "cart.cache.decode.failed", map[string]any{"userId": userID})
	case !errors.Is(err, redis.Nil):
		c.logger(ctx, "cart.cache.get.failed", map[string]any{"userId": userID, "error": err.Error()})
	}

	cart, err := c.next.GetCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	c.store(ctx, cart)
	return cart, nil
}

func (c *CartCache) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	saved, err := c.next.UpsertCart(ctx, cart)
	if err != nil {
		c.evict(ctx, cart.UserID)
		return domain.Cart{}, err
	}
	c.store(ctx, saved)
	return saved, nil
}

func (c *CartCache) DeleteCart(ctx context.Context, userID string) error {
	c.evict(ctx, userID)
	return c.next.DeleteCart(ctx, userID)
}

func (c *CartCache) store(ctx context.Context, cart domain.Cart) {
	data, err := json.Marshal(cart)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(cart.UserID), data, c.ttl+c.jitter()).Err(); err != nil {
		c.logger(ctx, "cart.cache.set.failed", map[string]any{"userId": cart.UserID, "error": err.Error()})
	}
}

func (c *CartCache) evict(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.logger(ctx, "cart.cache.delete.failed", map[string]any{"userId": userID, "error": err.Error()})
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
