package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes every store relies on: the unique
// cart-per-user constraint and the unique ticket code that backs duplicate
// detection. Called once at service start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	repos := []interface {
		CreateIndexes(ctx context.Context) error
	}{
		&mongoProductRepository{collection: db.Collection("products")},
		&mongoCartRepository{collection: db.Collection("carts")},
		&mongoTicketRepository{collection: db.Collection("tickets")},
	}

	for _, r := range repos {
		if err := r.CreateIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsValidID reports whether id is a well-formed document identifier.
// Handlers use it to reject malformed ids before touching a store.
func IsValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// NewID generates a fresh document identifier in hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
