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

const wishlistCollection = "wishlists"

// WishlistRepository stores the saved products of a customer as one document.
type WishlistRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.WishlistRepository = (*WishlistRepository)(nil)

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{provider: provider}, nil
}

// Get returns an empty wishlist when none was saved yet.
func (r *WishlistRepository) Get(ctx context.Context, userID string) (domain.Wishlist, error) {
	ref, err := r.doc(ctx, userID)
	if err != nil {
		return domain.Wishlist{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.Wishlist{UserID: ref.ID}, nil
		}
		return domain.Wishlist{}, pfirestore.WrapError("wishlists.get", err)
	}
	doc, err := pfirestore.Decode[wishlistDocument](snap)
	if err != nil {
		return domain.Wishlist{}, err
	}
	return doc.toDomain(ref.ID), nil
}

func (r *WishlistRepository) Add(ctx context.Context, userID string, item domain.WishlistItem) (domain.Wishlist, error) {
	return r.mutate(ctx, "wishlists.add", userID, func(doc *wishlistDocument) {
		for _, existing := range doc.Items {
			if existing.ProductID == item.ProductID {
				return
			}
		}
		doc.Items = append(doc.Items, wishlistItemDocument{ProductID: item.ProductID, AddedAt: item.AddedAt.UTC()})
		doc.UpdatedAt = item.AddedAt.UTC()
	})
}

func (r *WishlistRepository) Remove(ctx context.Context, userID string, productID string) (domain.Wishlist, error) {
	return r.mutate(ctx, "wishlists.remove", userID, func(doc *wishlistDocument) {
		kept := doc.Items[:0]
		for _, existing := range doc.Items {
			if existing.ProductID != productID {
				kept = append(kept, existing)
			}
		}
		doc.Items = kept
	})
}

func (r *WishlistRepository) mutate(ctx context.Context, op, userID string, apply func(*wishlistDocument)) (domain.Wishlist, error) {
	ref, err := r.doc(ctx, userID)
	if err != nil {
		return domain.Wishlist{}, err
	}
	var saved wishlistDocument
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc wishlistDocument
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if doc, err = pfirestore.Decode[wishlistDocument](snap); err != nil {
				return err
			}
		case pfirestore.IsNotFound(err):
		default:
			return err
		}
		apply(&doc)
		if doc.Items == nil {
			doc.Items = []wishlistItemDocument{}
		}
		saved = doc
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Wishlist{}, pfirestore.WrapError(op, err)
	}
	return saved.toDomain(ref.ID), nil
}

func (r *WishlistRepository) doc(ctx context.Context, userID string) (*firestore.DocumentRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("wishlist repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(wishlistCollection).Doc(uid), nil
}
