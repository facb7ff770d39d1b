package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/techmall/storefront-api/internal/domain"
	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
	"github.com/techmall/storefront-api/internal/repositories"
)

const cartCollection = "carts"

// CartRepository keeps one cart document per customer, keyed by user id.
type CartRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider}, nil
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	ref, err := r.doc(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.get", err)
	}
	doc, err := pfirestore.Decode[cartDocument](snap)
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.toDomain(ref.ID), nil
}

// UpsertCart overwrites the cart document, keeping the creation time of an existing cart.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	ref, err := r.doc(ctx, cart.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	doc := newCartDocument(cart)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.upsert", err)
	}
	return doc.toDomain(ref.ID), nil
}

func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	ref, err := r.doc(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func (r *CartRepository) doc(ctx context.Context, userID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cart repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(cartCollection).Doc(uid), nil
}
