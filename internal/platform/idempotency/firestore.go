package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
)

const defaultCollection = "idempotency_keys"

// FirestoreStore keeps keys in a Firestore collection, one document per scoped key.
type FirestoreStore struct {
	provider   *pfirestore.Provider
	collection string
}

// NewFirestoreStore builds a store on the shared provider. An empty collection uses
// idempotency_keys.
func NewFirestoreStore(provider *pfirestore.Provider, collection string) *FirestoreStore {
	if collection == "" {
		collection = defaultCollection
	}
	return &FirestoreStore{provider: provider, collection: collection}
}

type keyDocument struct {
	Key            string              `firestore:"key"`
	Fingerprint    string              `firestore:"fingerprint"`
	Status         string              `firestore:"status"`
	ResponseStatus int                 `firestore:"responseStatus"`
	ResponseHeader map[string][]string `firestore:"responseHeader,omitempty"`
	ResponseBody   []byte              `firestore:"responseBody,omitempty"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	ExpiresAt      time.Time           `firestore:"expiresAt"`
}

func toKeyDocument(r Record) keyDocument {
	return keyDocument{
		Key:            r.Key,
		Fingerprint:    r.Fingerprint,
		Status:         string(r.Status),
		ResponseStatus: r.ResponseStatus,
		ResponseHeader: r.ResponseHeader,
		ResponseBody:   r.ResponseBody,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}

func (d keyDocument) record() Record {
	return Record{
		Key:            d.Key,
		Fingerprint:    d.Fingerprint,
		Status:         Status(d.Status),
		ResponseStatus: d.ResponseStatus,
		ResponseHeader: d.ResponseHeader,
		ResponseBody:   d.ResponseBody,
		CreatedAt:      d.CreatedAt,
		ExpiresAt:      d.ExpiresAt,
	}
}

func (s *FirestoreStore) ref(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(s.collection).Doc(documentID(key)), nil
}

// load reads the current record inside tx. ok is false when the document is missing.
func load(tx *firestore.Transaction, ref *firestore.DocumentRef) (Record, bool, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	doc, err := pfirestore.Decode[keyDocument](snap)
	if err != nil {
		return Record{}, false, err
	}
	return doc.record(), true, nil
}

func (s *FirestoreStore) Acquire(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	now = now.UTC()
	ref, err := s.ref(ctx, key)
	if err != nil {
		return Claim{}, err
	}

	var claim Claim
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record, ok, err := load(tx, ref)
		if err != nil {
			return err
		}
		if !ok || record.expired(now) {
			record = newInFlight(key, fingerprint, now, normaliseTTL(ttl))
			claim = Claim{State: ClaimAcquired, Record: record}
			return tx.Set(ref, toKeyDocument(record))
		}
		claim, err = claimFor(record, fingerprint)
		return err
	})
	return claim, err
}

func (s *FirestoreStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	ref, err := s.ref(ctx, key)
	if err != nil {
		return err
	}
	return s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record, ok, err := load(tx, ref)
		if err != nil {
			return err
		}
		if ok && record.Fingerprint != fingerprint {
			return ErrKeyReused
		}
		if !ok {
			record = Record{Key: key, Fingerprint: fingerprint}
		}
		return tx.Set(ref, toKeyDocument(completed(record, resp, now, normaliseTTL(ttl))))
	})
}

func (s *FirestoreStore) Abandon(ctx context.Context, key string) error {
	ref, err := s.ref(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && !pfirestore.IsNotFound(err) {
		return pfirestore.WrapError("idempotency.abandon", err)
	}
	return nil
}

func (s *FirestoreStore) Sweep(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	docs, err := client.Collection(s.collection).
		Where("expiresAt", "<=", now.UTC()).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return 0, pfirestore.WrapError("idempotency.sweep", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	writer := client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := writer.Delete(doc.Ref); err != nil {
			writer.End()
			return 0, pfirestore.WrapError("idempotency.sweep", err)
		}
	}
	writer.End()
	return len(docs), nil
}
