package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/techmall/storefront-api/internal/domain"
	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
	"github.com/techmall/storefront-api/internal/repositories"
)

const (
	orderCollection = "orders"

	revenueAlias = "revenue"
)

// OrderRepository persists orders and owns the stock decrement performed at checkout.
type OrderRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

// Commit reads every product touched by the order, verifies stock, then decrements each
// counter and creates the order document in the same transaction.
func (r *OrderRepository) Commit(ctx context.Context, order domain.Order) error {
	client, err := r.client(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	orderRef := client.Collection(orderCollection).Doc(order.ID)
	lines := order.StockLines()
	if err := repositories.CheckStockLines(lines); err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make([]*firestore.DocumentRef, len(lines))
		for i, line := range lines {
			refs[i] = client.Collection(productCollection).Doc(line.ProductID)
			stock, err := readStock(tx, refs[i])
			if err != nil {
				return err
			}
			if stock < line.Quantity {
				return repositories.NewInsufficientStockError(line.ProductID, stock, line.Quantity)
			}
		}
		for i, line := range lines {
			if err := tx.Update(refs[i], []firestore.Update{
				{Path: "stockQuantity", Value: firestore.Increment(-line.Quantity)},
				{Path: "updatedAt", Value: order.CreatedAt.UTC()},
			}); err != nil {
				return err
			}
		}
		return tx.Create(orderRef, newOrderDocument(order))
	})
	return pfirestore.WrapError("orders.commit", err)
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	client, err := r.client(ctx)
	if err != nil {
		return err
	}
	doc := newOrderDocument(order)
	_, err = client.Collection(orderCollection).Doc(order.ID).Update(ctx, []firestore.Update{
		{Path: "status", Value: doc.Status},
		{Path: "courierInfo", Value: doc.CourierInfo},
		{Path: "isPaid", Value: doc.IsPaid},
		{Path: "paidAt", Value: doc.PaidAt},
		{Path: "deliveredAt", Value: doc.DeliveredAt},
		{Path: "paymentResult", Value: doc.PaymentResult},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	})
	return pfirestore.WrapError("orders.update", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	client, err := r.client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, repositories.NewNotFoundError("orders.get", errors.New("order id is empty"))
	}
	snap, err := client.Collection(orderCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.get", err)
	}
	return decodeOrder(snap)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	query := client.Collection(orderCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
	return pfirestore.CollectAll("orders.list_by_user", query.Documents(ctx), decodeOrder)
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.OffsetPage[domain.Order], error) {
	client, err := r.client(ctx)
	if err != nil {
		return domain.OffsetPage[domain.Order]{}, err
	}
	page := normalisePage(filter.Page)

	if id := strings.TrimSpace(filter.OrderID); id != "" {
		order, err := r.FindByID(ctx, id)
		switch {
		case repositories.IsNotFound(err):
			return domain.OffsetPage[domain.Order]{Page: page}, nil
		case err != nil:
			return domain.OffsetPage[domain.Order]{}, err
		}
		if filter.Status != nil && order.Status != *filter.Status {
			return domain.OffsetPage[domain.Order]{Page: page}, nil
		}
		return domain.OffsetPage[domain.Order]{Items: []domain.Order{order}, Page: page, Pages: 1, Total: 1}, nil
	}

	query := client.Collection(orderCollection).Query
	if filter.Status != nil {
		query = query.Where("status", "==", string(*filter.Status))
	}
	total, err := countQuery(ctx, "orders.count", query)
	if err != nil {
		return domain.OffsetPage[domain.Order]{}, err
	}
	ordered := query.OrderBy("createdAt", firestore.Desc)
	if filter.PageSize > 0 {
		ordered = ordered.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	items, err := pfirestore.CollectAll("orders.list", ordered.Documents(ctx), decodeOrder)
	if err != nil {
		return domain.OffsetPage[domain.Order]{}, err
	}
	return domain.OffsetPage[domain.Order]{
		Items: items,
		Page:  page,
		Pages: pageCount(total, filter.PageSize),
		Total: total,
	}, nil
}

// Stats runs server-side aggregations so the order documents never leave Firestore.
func (r *OrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	client, err := r.client(ctx)
	if err != nil {
		return domain.OrderStats{}, err
	}
	coll := client.Collection(orderCollection)

	result, err := coll.NewAggregationQuery().
		WithCount(countAlias).
		WithSum("totalPrice", revenueAlias).
		Get(ctx)
	if err != nil {
		return domain.OrderStats{}, pfirestore.WrapError("orders.stats", err)
	}
	total, err := aggregateInt(result, countAlias)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("orders.stats: %w", err)
	}
	revenue, err := aggregateInt(result, revenueAlias)
	if err != nil {
		return domain.OrderStats{}, fmt.Errorf("orders.stats: %w", err)
	}
	pending, err := countQuery(ctx, "orders.stats.pending", coll.Where("status", "==", string(domain.OrderStatusPending)))
	if err != nil {
		return domain.OrderStats{}, err
	}
	paid, err := countQuery(ctx, "orders.stats.paid", coll.Where("isPaid", "==", true))
	if err != nil {
		return domain.OrderStats{}, err
	}
	return domain.OrderStats{
		TotalRevenue:  revenue,
		TotalOrders:   int(total),
		PendingOrders: pending,
		PaidOrders:    paid,
	}, nil
}

func (r *OrderRepository) client(ctx context.Context) (*firestore.Client, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	return r.provider.Client(ctx)
}

func decodeOrder(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	doc, err := pfirestore.Decode[orderDocument](snap)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.toDomain(snap.Ref.ID), nil
}
