package firestore

import (
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Decode hydrates a document snapshot into T using firestore struct tags.
func Decode[T any](snap *firestore.DocumentSnapshot) (T, error) {
	var out T
	if snap == nil || !snap.Exists() {
		return out, errors.New("firestore: snapshot does not exist")
	}
	if err := snap.DataTo(&out); err != nil {
		return out, fmt.Errorf("firestore: decode %s: %w", snap.Ref.ID, err)
	}
	return out, nil
}

// CollectAll drains iter, decoding every document with decode. The iterator is always stopped.
func CollectAll[T any](op string, iter *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	defer iter.Stop()
	var out []T
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(op, err)
		}
		item, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
}

// IsNotFound reports whether err is a Firestore NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
