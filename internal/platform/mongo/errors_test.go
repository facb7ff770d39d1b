package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrapErrorClassifies(t *testing.T) {
	notFound := WrapError("carts.get", mongo.ErrNoDocuments)
	var repoErr *Error
	if !errors.As(notFound, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", notFound)
	}

	dup := WrapError("orders.commit", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}})
	if !errors.As(dup, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict, got %v", dup)
	}

	transient := WrapError("orders.commit", mongo.CommandError{Code: 112, Labels: []string{"TransientTransactionError"}})
	if !errors.As(transient, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected transient transaction error to be a conflict, got %v", transient)
	}

	disconnected := WrapError("ping", mongo.ErrClientDisconnected)
	if !errors.As(disconnected, &repoErr) || !repoErr.IsUnavailable() {
		t.Fatalf("expected unavailable, got %v", disconnected)
	}
}

func TestWrapErrorPassesThroughForeignErrors(t *testing.T) {
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapError("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	domainErr := fmt.Errorf("insufficient stock")
	if err := WrapError("op", domainErr); err != domainErr {
		t.Fatalf("expected passthrough, got %v", err)
	}
}
