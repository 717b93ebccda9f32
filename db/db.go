package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store holds the client and the collections the services work on.
type Store struct {
	Client *mongo.Client

	UserCollection    *mongo.Collection
	ProductCollection *mongo.Collection
	CartCollection    *mongo.Collection
	OrderCollection   *mongo.Collection
}

// Connect dials MongoDB and pings the primary.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(dbName)
	return &Store{
		Client:            client,
		UserCollection:    database.Collection("users"),
		ProductCollection: database.Collection("products"),
		CartCollection:    database.Collection("carts"),
		OrderCollection:   database.Collection("orders"),
	}, nil
}

// EnsureIndexes creates the unique and ordering indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.UserCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_email"),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	idxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "razorpayOrderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_razorpay_order"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
	}
	if _, err := s.OrderCollection.Indexes().CreateMany(ctx, idxs); err != nil {
		return fmt.Errorf("orders indexes: %w", err)
	}
	return nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// IsDuplicateKey reports a unique-index violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}
