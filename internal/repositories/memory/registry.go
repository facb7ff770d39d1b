// Package memory implements the repositories on process memory. It backs local development
// and the service tests; data is lost on restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

// Registry holds every collection behind one mutex so order commits can decrement stock
// atomically with the order insert.
type Registry struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	carts     map[string]domain.Cart
	orders    map[string]domain.Order
	wishlists map[string]domain.Wishlist
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		products:  make(map[string]domain.Product),
		carts:     make(map[string]domain.Cart),
		orders:    make(map[string]domain.Order),
		wishlists: make(map[string]domain.Wishlist),
	}
}

func (r *Registry) Products() repositories.ProductRepository   { return productStore{r} }
func (r *Registry) Carts() repositories.CartRepository         { return cartStore{r} }
func (r *Registry) Orders() repositories.OrderRepository       { return orderStore{r} }
func (r *Registry) Wishlists() repositories.WishlistRepository { return wishlistStore{r} }

// Ping always succeeds.
func (r *Registry) Ping(context.Context) error { return nil }

// Close is a no-op.
func (r *Registry) Close(context.Context) error { return nil }

type productStore struct{ r *Registry }

func (s productStore) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	product, ok := s.r.products[productID]
	if !ok {
		return domain.Product{}, repositories.NewNotFoundError("products.get", fmt.Errorf("product %s", productID))
	}
	return cloneProduct(product), nil
}

func (s productStore) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	out := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if product, ok := s.r.products[id]; ok {
			out = append(out, cloneProduct(product))
		}
	}
	return out, nil
}

func (s productStore) List(ctx context.Context, filter repositories.ProductListFilter) (domain.OffsetPage[domain.Product], error) {
	if err := ctx.Err(); err != nil {
		return domain.OffsetPage[domain.Product]{}, err
	}
	s.r.mu.Lock()
	matched := make([]domain.Product, 0, len(s.r.products))
	for _, product := range s.r.products {
		if filter.PublishedOnly && !product.Published {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(product.Category, filter.Category) {
			continue
		}
		matched = append(matched, cloneProduct(product))
	}
	s.r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Page, filter.PageSize), nil
}

func (s productStore) Save(ctx context.Context, product domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("memory: product id is required")
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.products[product.ID] = cloneProduct(product)
	return nil
}

func (s productStore) DecrementStock(ctx context.Context, productID string, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return s.r.decrementLocked(productID, qty)
}

func (r *Registry) decrementLocked(productID string, qty int) error {
	if err := repositories.CheckStockLines([]domain.StockLine{{ProductID: productID, Quantity: qty}}); err != nil {
		return err
	}
	product, ok := r.products[productID]
	if !ok {
		return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, productID, fmt.Sprintf("product %s not found", productID), nil)
	}
	if product.StockQuantity < qty {
		return repositories.NewInsufficientStockError(productID, product.StockQuantity, qty)
	}
	product.StockQuantity -= qty
	r.products[productID] = product
	return nil
}

type cartStore struct{ r *Registry }

func (s cartStore) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	cart, ok := s.r.carts[userID]
	if !ok {
		return domain.Cart{}, repositories.NewNotFoundError("carts.get", fmt.Errorf("cart %s", userID))
	}
	return cloneCart(cart), nil
}

func (s cartStore) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}
	if strings.TrimSpace(cart.UserID) == "" {
		return domain.Cart{}, errors.New("memory: cart user id is required")
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if existing, ok := s.r.carts[cart.UserID]; ok && !existing.CreatedAt.IsZero() {
		cart.CreatedAt = existing.CreatedAt
	}
	s.r.carts[cart.UserID] = cloneCart(cart)
	return cloneCart(cart), nil
}

func (s cartStore) DeleteCart(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	delete(s.r.carts, userID)
	return nil
}

type orderStore struct{ r *Registry }

func (s orderStore) Commit(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, exists := s.r.orders[order.ID]; exists {
		return repositories.NewConflictError("orders.commit", fmt.Errorf("order %s already exists", order.ID))
	}

	lines := order.StockLines()
	if err := repositories.CheckStockLines(lines); err != nil {
		return err
	}
	for _, line := range lines {
		product, ok := s.r.products[line.ProductID]
		if !ok {
			return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, line.ProductID, fmt.Sprintf("product %s not found", line.ProductID), nil)
		}
		if product.StockQuantity < line.Quantity {
			return repositories.NewInsufficientStockError(line.ProductID, product.StockQuantity, line.Quantity)
		}
	}
	for _, line := range lines {
		if err := s.r.decrementLocked(line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	s.r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s orderStore) Update(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.orders[order.ID]; !ok {
		return repositories.NewNotFoundError("orders.update", fmt.Errorf("order %s", order.ID))
	}
	s.r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s orderStore) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	order, ok := s.r.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("orders.get", fmt.Errorf("order %s", orderID))
	}
	return cloneOrder(order), nil
}

func (s orderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.r.mu.Lock()
	out := make([]domain.Order, 0)
	for _, order := range s.r.orders {
		if order.UserID == userID {
			out = append(out, cloneOrder(order))
		}
	}
	s.r.mu.Unlock()
	sortNewestFirst(out)
	return out, nil
}

func (s orderStore) List(ctx context.Context, filter repositories.OrderListFilter) (domain.OffsetPage[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.OffsetPage[domain.Order]{}, err
	}
	s.r.mu.Lock()
	matched := make([]domain.Order, 0, len(s.r.orders))
	for _, order := range s.r.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.OrderID != "" && order.ID != filter.OrderID {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	s.r.mu.Unlock()
	sortNewestFirst(matched)
	return paginate(matched, filter.Page, filter.PageSize), nil
}

func (s orderStore) Stats(ctx context.Context) (domain.OrderStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderStats{}, err
	}
	s.r.mu.Lock()
	orders := make([]domain.Order, 0, len(s.r.orders))
	for _, order := range s.r.orders {
		orders = append(orders, order)
	}
	s.r.mu.Unlock()
	return domain.SummarizeOrders(orders), nil
}

type wishlistStore struct{ r *Registry }

func (s wishlistStore) Get(ctx context.Context, userID string) (domain.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wishlist{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	list, ok := s.r.wishlists[userID]
	if !ok {
		return domain.Wishlist{UserID: userID}, nil
	}
	return cloneWishlist(list), nil
}

func (s wishlistStore) Add(ctx context.Context, userID string, item domain.WishlistItem) (domain.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wishlist{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	list := s.r.wishlists[userID]
	list.UserID = userID
	if !list.Contains(item.ProductID) {
		list.Items = append(append([]domain.WishlistItem(nil), list.Items...), item)
		list.UpdatedAt = item.AddedAt
	}
	s.r.wishlists[userID] = list
	return cloneWishlist(list), nil
}

func (s wishlistStore) Remove(ctx context.Context, userID string, productID string) (domain.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wishlist{}, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	list := s.r.wishlists[userID]
	list.UserID = userID
	kept := make([]domain.WishlistItem, 0, len(list.Items))
	for _, item := range list.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	list.Items = kept
	s.r.wishlists[userID] = list
	return cloneWishlist(list), nil
}

func paginate[T any](items []T, page, pageSize int) domain.OffsetPage[T] {
	if page < 1 {
		page = 1
	}
	total := len(items)
	if pageSize <= 0 {
		return domain.OffsetPage[T]{Items: items, Page: 1, Pages: 1, Total: total}
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return domain.OffsetPage[T]{
		Items: items[start:end],
		Page:  page,
		Pages: domain.PageCount(total, pageSize),
		Total: total,
	}
}

func sortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string(nil), p.Images...)
	if p.SalePrice != nil {
		sale := *p.SalePrice
		p.SalePrice = &sale
	}
	return p
}

func cloneCart(c domain.Cart) domain.Cart {
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return c
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.PaidAt != nil {
		paid := *o.PaidAt
		o.PaidAt = &paid
	}
	if o.DeliveredAt != nil {
		delivered := *o.DeliveredAt
		o.DeliveredAt = &delivered
	}
	return o
}

func cloneWishlist(w domain.Wishlist) domain.Wishlist {
	w.Items = append([]domain.WishlistItem(nil), w.Items...)
	return w
}
