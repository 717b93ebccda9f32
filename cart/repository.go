package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fancystore/db"
	"fancystore/errs"
	"fancystore/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrCartNotFound = errs.NotFound("Cart not found")
	ErrItemNotFound = errs.NotFound("Item not in cart")
)

type Repository interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	// AddOne bumps the line for productID by one, appending it if absent.
	AddOne(ctx context.Context, userID, productID string) error
	SetQuantity(ctx context.Context, userID, productID string, n int) error
	RemoveLine(ctx context.Context, userID, productID string) error
	Delete(ctx context.Context, userID string) error
}

type MongoRepository struct {
	carts *mongo.Collection
}

func NewMongoRepository(carts *mongo.Collection) *MongoRepository {
	return &MongoRepository{carts: carts}
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	err := r.carts.FindOne(ctx, bson.M{"_id": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return &c, nil
}

func (r *MongoRepository) AddOne(ctx context.Context, userID, productID string) error {
	now := time.Now().UTC()
	for attempt := 0; attempt < 2; attempt++ {
		res, err := r.carts.UpdateOne(ctx,
			bson.M{"_id": userID, "products.productId": productID},
			bson.M{
				"$inc": bson.M{"products.$.quantity": 1},
				"$set": bson.M{"updatedAt": now},
			})
		if err != nil {
			return fmt.Errorf("increment cart line: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		// no line yet: push one, creating the cart if needed
		_, err = r.carts.UpdateOne(ctx,
			bson.M{"_id": userID, "products.productId": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"products": models.CartLine{ProductID: productID, Quantity: 1}},
				"$set":  bson.M{"updatedAt": now},
			},
			options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		// a concurrent add created the line first; go round and increment it
		if !db.IsDuplicateKey(err) {
			return fmt.Errorf("push cart line: %w", err)
		}
	}
	return errs.Conflict("Cart is being updated, please retry")
}

func (r *MongoRepository) SetQuantity(ctx context.Context, userID, productID string, n int) error {
	res, err := r.carts.UpdateOne(ctx,
		bson.M{"_id": userID, "products.productId": productID},
		bson.M{"$set": bson.M{"products.$.quantity": n, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	count, err := r.carts.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("count cart: %w", err)
	}
	if count == 0 {
		return ErrCartNotFound
	}
	return ErrItemNotFound
}

func (r *MongoRepository) RemoveLine(ctx context.Context, userID, productID string) error {
	_, err := r.carts.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"products": bson.M{"productId": productID}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.carts.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
