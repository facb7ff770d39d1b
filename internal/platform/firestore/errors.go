package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/techmall/storefront-api/internal/repositories"
)

// WrapError maps a Firestore gRPC status onto a repositories.StoreError so services can
// branch on IsNotFound, IsConflict and IsUnavailable without knowing the driver.
// Errors without a status, such as domain errors returned from a transaction body, and
// errors that are already classified pass through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var classified repositories.RepositoryError
	if errors.As(err, &classified) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		return repositories.NewNotFoundError(op, err)
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return repositories.NewConflictError(op, err)
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return repositories.NewUnavailableError(op, err)
	default:
		return &repositories.StoreError{Op: op, Err: err}
	}
}
