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

const productCollection = "products"

// ProductRepository stores catalog entries in the products collection.
type ProductRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{provider: provider}, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, repositories.NewNotFoundError("products.get", errors.New("product id is empty"))
	}
	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.get", err)
	}
	return decodeProduct(snap)
}

// FindByIDs skips ids that do not resolve to a document.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, 0, len(productIDs))
	for _, id := range productIDs {
		if id = strings.TrimSpace(id); id != "" {
			refs = append(refs, client.Collection(productCollection).Doc(id))
		}
	}
	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, pfirestore.WrapError("products.get_all", err)
	}
	out := make([]domain.Product, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		product, err := decodeProduct(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.OffsetPage[domain.Product], error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.OffsetPage[domain.Product]{}, err
	}
	query := coll.Query
	if filter.PublishedOnly {
		query = query.Where("published", "==", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
	}

	total, err := countQuery(ctx, "products.count", query)
	if err != nil {
		return domain.OffsetPage[domain.Product]{}, err
	}

	page := normalisePage(filter.Page)
	ordered := query.OrderBy("createdAt", firestore.Desc)
	if filter.PageSize > 0 {
		ordered = ordered.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	items, err := pfirestore.CollectAll("products.list", ordered.Documents(ctx), decodeProduct)
	if err != nil {
		return domain.OffsetPage[domain.Product]{}, err
	}
	return domain.OffsetPage[domain.Product]{
		Items: items,
		Page:  page,
		Pages: pageCount(total, filter.PageSize),
		Total: total,
	}, nil
}

func (r *ProductRepository) Save(ctx context.Context, product domain.Product) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return errors.New("product repository: product id is required")
	}
	if _, err := coll.Doc(id).Set(ctx, newProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.save", err)
	}
	return nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	if err := repositories.CheckStockLines([]domain.StockLine{{ProductID: productID, Quantity: qty}}); err != nil {
		return err
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	ref := client.Collection(productCollection).Doc(productID)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stock, err := readStock(tx, ref)
		if err != nil {
			return err
		}
		if stock < qty {
			return repositories.NewInsufficientStockError(productID, stock, qty)
		}
		return tx.Update(ref, []firestore.Update{{Path: "stockQuantity", Value: firestore.Increment(-qty)}})
	})
	return pfirestore.WrapError("products.decrement_stock", err)
}

func (r *ProductRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("product repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(productCollection), nil
}

// readStock loads the stock counter inside a transaction. Missing products surface as an
// InventoryError so callers can name the offending line.
func readStock(tx *firestore.Transaction, ref *firestore.DocumentRef) (int, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return 0, repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, ref.ID, fmt.Sprintf("product %s not found", ref.ID), err)
		}
		return 0, err
	}
	raw, err := snap.DataAt("stockQuantity")
	if err != nil {
		return 0, fmt.Errorf("read stock %s: %w", ref.ID, err)
	}
	stock, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("read stock %s: unexpected type %T", ref.ID, raw)
	}
	return int(stock), nil
}

func decodeProduct(snap *firestore.DocumentSnapshot) (domain.Product, error) {
	doc, err := pfirestore.Decode[productDocument](snap)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(snap.Ref.ID), nil
}
