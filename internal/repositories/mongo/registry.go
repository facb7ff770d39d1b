// Package mongo implements the repositories on MongoDB. Order commits use a session
// transaction, so the deployment must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/techmall/storefront-api/internal/domain"
	pmongo "github.com/techmall/storefront-api/internal/platform/mongo"
	"github.com/techmall/storefront-api/internal/repositories"
)

const (
	productCollection  = "products"
	cartCollection     = "carts"
	orderCollection    = "orders"
	wishlistCollection = "wishlists"
)

// Registry exposes the MongoDB repositories sharing one database handle.
type Registry struct {
	db        *mongo.Database
	products  *ProductRepository
	carts     *CartRepository
	orders    *OrderRepository
	wishlists *WishlistRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every repository onto db.
func NewRegistry(db *mongo.Database) (*Registry, error) {
	if db == nil {
		return nil, errors.New("mongo registry requires database")
	}
	return &Registry{
		db:        db,
		products:  &ProductRepository{coll: db.Collection(productCollection)},
		carts:     &CartRepository{coll: db.Collection(cartCollection)},
		orders:    &OrderRepository{db: db, coll: db.Collection(orderCollection), products: db.Collection(productCollection)},
		wishlists: &WishlistRepository{coll: db.Collection(wishlistCollection)},
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Carts() repositories.CartRepository         { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Wishlists() repositories.WishlistRepository { return r.wishlists }

// Ping checks that the primary answers.
func (r *Registry) Ping(ctx context.Context) error { return pmongo.Ping(ctx, r.db) }

// Close disconnects the underlying client.
func (r *Registry) Close(ctx context.Context) error { return r.db.Client().Disconnect(ctx) }

// EnsureIndexes creates the indexes used by listings and stats.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		orderCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		productCollection: {
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// ProductRepository stores catalog entries.
type ProductRepository struct {
	coll *mongo.Collection
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		return domain.Product{}, pmongo.WrapError("products.get", err)
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, pmongo.WrapError("products.get_all", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("products.get_all", err)
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.OffsetPage[domain.Product], error) {
	query := bson.M{}
	if filter.PublishedOnly {
		query["published"] = true
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query["category"] = category
	}
	var docs []productDocument
	page, total, err := findPage(ctx, r.coll, "products.list", query, filter.Page, filter.PageSize, &docs)
	if err != nil {
		return domain.OffsetPage[domain.Product]{}, err
	}
	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return domain.OffsetPage[domain.Product]{Items: items, Page: page, Pages: pages(total, filter.PageSize), Total: total}, nil
}

func (r *ProductRepository) Save(ctx context.Context, product domain.Product) error {
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product repository: product id is required")
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, newProductDocument(product), options.Replace().SetUpsert(true))
	return pmongo.WrapError("products.save", err)
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	return decrementStock(ctx, r.coll, productID, qty)
}

// decrementStock applies the conditional $inc. A miss is resolved into either a missing
// product or an insufficient-stock error.
func decrementStock(ctx context.Context, coll *mongo.Collection, productID string, qty int) error {
	if err := repositories.CheckStockLines([]domain.StockLine{{ProductID: productID, Quantity: qty}}); err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": productID, "stockQuantity": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stockQuantity": -qty}},
	)
	if err != nil {
		return pmongo.WrapError("products.decrement_stock", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	var doc productDocument
	err = coll.FindOne(ctx, bson.M{"_id": productID}, options.FindOne().SetProjection(bson.M{"stockQuantity": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, productID, fmt.Sprintf("product %s not found", productID), nil)
	}
	if err != nil {
		return pmongo.WrapError("products.decrement_stock", err)
	}
	return repositories.NewInsufficientStockError(productID, doc.StockQuantity, qty)
}

// CartRepository keeps one cart document per customer.
type CartRepository struct {
	coll *mongo.Collection
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	var doc cartDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.Cart{}, pmongo.WrapError("carts.get", err)
	}
	return doc.toDomain(), nil
}

func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if strings.TrimSpace(cart.UserID) == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	doc := newCartDocument(cart)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return domain.Cart{}, pmongo.WrapError("carts.upsert", err)
	}
	return doc.toDomain(), nil
}

func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": userID})
	return pmongo.WrapError("carts.delete", err)
}

// OrderRepository persists orders and performs the checkout stock decrement.
type OrderRepository struct {
	db       *mongo.Database
	coll     *mongo.Collection
	products *mongo.Collection
}

// Commit decrements every line and inserts the order inside one session transaction. The
// first short line aborts the transaction, rolling back earlier decrements.
func (r *OrderRepository) Commit(ctx context.Context, order domain.Order) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return pmongo.WrapError("orders.commit", err)
	}
	defer session.EndSession(ctx)

	lines := order.StockLines()
	if err := repositories.CheckStockLines(lines); err != nil {
		return err
	}
	doc := newOrderDocument(order)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		for _, line := range lines {
			if err := decrementStock(sc, r.products, line.ProductID, line.Quantity); err != nil {
				return nil, err
			}
		}
		if _, err := r.coll.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return pmongo.WrapError("orders.commit", err)
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	doc := newOrderDocument(order)
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
		"status":        doc.Status,
		"courierInfo":   doc.CourierInfo,
		"isPaid":        doc.IsPaid,
		"paidAt":        doc.PaidAt,
		"deliveredAt":   doc.DeliveredAt,
		"paymentResult": doc.PaymentResult,
		"updatedAt":     doc.UpdatedAt,
	}})
	if err != nil {
		return pmongo.WrapError("orders.update", err)
	}
	if res.MatchedCount == 0 {
		return pmongo.WrapError("orders.update", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	var doc orderDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc); err != nil {
		return domain.Order{}, pmongo.WrapError("orders.get", err)
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, pmongo.WrapError("orders.list_by_user", err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("orders.list_by_user", err)
	}
	return ordersFromDocs(docs), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.OffsetPage[domain.Order], error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if id := strings.TrimSpace(filter.OrderID); id != "" {
		query["_id"] = id
	}
	var docs []orderDocument
	page, total, err := findPage(ctx, r.coll, "orders.list", query, filter.Page, filter.PageSize, &docs)
	if err != nil {
		return domain.OffsetPage[domain.Order]{}, err
	}
	return domain.OffsetPage[domain.Order]{Items: ordersFromDocs(docs), Page: page, Pages: pages(total, filter.PageSize), Total: total}, nil
}

func (r *OrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "revenue", Value: bson.M{"$sum": "$totalPrice"}},
			{Key: "total", Value: bson.M{"$sum": 1}},
			{Key: "pending", Value: bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(domain.OrderStatusPending)}}, 1, 0}}}},
			{Key: "paid", Value: bson.M{"$sum": bson.M{"$cond": bson.A{"$isPaid", 1, 0}}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.OrderStats{}, pmongo.WrapError("orders.stats", err)
	}
	var rows []statsDocument
	if err := cursor.All(ctx, &rows); err != nil {
		return domain.OrderStats{}, pmongo.WrapError("orders.stats", err)
	}
	if len(rows) == 0 {
		return domain.OrderStats{}, nil
	}
	return domain.OrderStats{
		TotalRevenue:  rows[0].Revenue,
		TotalOrders:   rows[0].Total,
		PendingOrders: rows[0].Pending,
		PaidOrders:    rows[0].Paid,
	}, nil
}

// WishlistRepository stores saved products per customer.
type WishlistRepository struct {
	coll *mongo.Collection
}

func (r *WishlistRepository) Get(ctx context.Context, userID string) (domain.Wishlist, error) {
	var doc wishlistDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Wishlist{UserID: userID}, nil
	}
	if err != nil {
		return domain.Wishlist{}, pmongo.WrapError("wishlists.get", err)
	}
	return doc.toDomain(), nil
}

// Add pushes the item only when no entry for the product exists yet.
func (r *WishlistRepository) Add(ctx context.Context, userID string, item domain.WishlistItem) (domain.Wishlist, error) {
	if _, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{"items": bson.A{}, "updatedAt": item.AddedAt.UTC()}},
		options.Update().SetUpsert(true),
	); err != nil {
		return domain.Wishlist{}, pmongo.WrapError("wishlists.add", err)
	}
	if _, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "items.productId": bson.M{"$ne": item.ProductID}},
		bson.M{
			"$push": bson.M{"items": wishlistItemDoc{ProductID: item.ProductID, AddedAt: item.AddedAt.UTC()}},
			"$set":  bson.M{"updatedAt": item.AddedAt.UTC()},
		},
	); err != nil {
		return domain.Wishlist{}, pmongo.WrapError("wishlists.add", err)
	}
	return r.Get(ctx, userID)
}

func (r *WishlistRepository) Remove(ctx context.Context, userID string, productID string) (domain.Wishlist, error) {
	if _, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"items": bson.M{"productId": productID}}},
	); err != nil {
		return domain.Wishlist{}, pmongo.WrapError("wishlists.remove", err)
	}
	return r.Get(ctx, userID)
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func findPage(ctx context.Context, coll *mongo.Collection, op string, query bson.M, page, pageSize int, out any) (int, int, error) {
	if page < 1 {
		page = 1
	}
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return 0, 0, pmongo.WrapError(op, err)
	}
	opts := options.Find().SetSort(newestFirst)
	if pageSize > 0 {
		opts.SetSkip(int64((page - 1) * pageSize)).SetLimit(int64(pageSize))
	}
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return 0, 0, pmongo.WrapError(op, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return 0, 0, pmongo.WrapError(op, err)
	}
	return page, int(total), nil
}

func pages(total, pageSize int) int {
	if pageSize <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return domain.PageCount(total, pageSize)
}

func ordersFromDocs(docs []orderDocument) []domain.Order {
	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out
}
