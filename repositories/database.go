package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Database is what repositories need from the connection manager.
// *db.Manager satisfies it.
type Database interface {
	Collection(ctx context.Context, name string) (*mongo.Collection, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
