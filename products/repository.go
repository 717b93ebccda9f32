package products

import (
	"context"
	"errors"
	"fmt"

	"fancystore/errs"
	"fancystore/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errs.NotFound("Product not found")

type Repository interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	// GetMany returns the products that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	// Decrement takes n units only if at least n are in stock.
	Decrement(ctx context.Context, id string, n int) (bool, error)
	Increment(ctx context.Context, id string, n int) error
}

type MongoRepository struct {
	products *mongo.Collection
}

func NewMongoRepository(products *mongo.Collection) *MongoRepository {
	return &MongoRepository{products: products}
}

func (r *MongoRepository) List(ctx context.Context) ([]models.Product, error) {
	cursor, err := r.products.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.Product{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoRepository) GetMany(ctx context.Context, ids []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		out[p.ID] = p
	}
	return out, cursor.Err()
}

func (r *MongoRepository) Create(ctx context.Context, p *models.Product) error {
	if _, err := r.products.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Cost != nil {
		set["cost"] = *patch.Cost
	}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}

	var updated models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return &updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Decrement(ctx context.Context, id string, n int) (bool, error) {
	filter := bson.M{
		"_id":      id,
		"quantity": bson.M{"$gte": n},
	}
	res, err := r.products.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity": -n}})
	if err != nil {
		return false, fmt.Errorf("decrement %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) Increment(ctx context.Context, id string, n int) error {
	if _, err := r.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"quantity": n}}); err != nil {
		return fmt.Errorf("increment %s: %w", id, err)
	}
	return nil
}
