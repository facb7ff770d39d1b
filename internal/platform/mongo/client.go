// Package mongo connects the MongoDB store driver and classifies its errors.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/techmall/storefront-api/internal/platform/config"
)

const (
	defaultConnectTimeout  = 10 * time.Second
	serverSelectionTimeout = 5 * time.Second
)

// Connect dials MongoDB with the configured pool, pings the primary, and returns the
// storefront database handle.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo: uri is required")
	}
	dbName := strings.TrimSpace(cfg.Database)
	if dbName == "" {
		return nil, errors.New("mongo: database is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(serverSelectionTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return client.Database(dbName), nil
}

// Ping checks the primary answers.
func Ping(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return errors.New("mongo: database is nil")
	}
	return WrapError("ping", db.Client().Ping(ctx, readpref.Primary()))
}
