package orders

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

var ErrNotFound = errs.NotFound("Order not found")

type Repository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]models.Order, error)
	// MarkPaid moves a Pending or Failed order to Paid. It reports false
	// when no such order matched.
	MarkPaid(ctx context.Context, gatewayOrderID, paymentID, signature string) (bool, error)
	// MarkFailed moves a Pending order to Failed.
	MarkFailed(ctx context.Context, gatewayOrderID, paymentID, reason string) (bool, error)
}

type MongoRepository struct {
	orders *mongo.Collection
}

func NewMongoRepository(orders *mongo.Collection) *MongoRepository {
	return &MongoRepository{orders: orders}
}

func (r *MongoRepository) Create(ctx context.Context, o *models.Order) error {
	if _, err := r.orders.InsertOne(ctx, o); err != nil {
		if db.IsDuplicateKey(err) {
			return errs.Conflict("Order already exists")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	err := r.orders.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) FindByGatewayID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"razorpayOrderId": gatewayOrderID})
}

func (r *MongoRepository) List(ctx context.Context) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.Order{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) MarkPaid(ctx context.Context, gatewayOrderID, paymentID, signature string) (bool, error) {
	filter := bson.M{
		"razorpayOrderId": gatewayOrderID,
		"status":          bson.M{"$in": []models.OrderStatus{models.OrderPending, models.OrderFailed}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":            models.OrderPaid,
			"razorpayPaymentId": paymentID,
			"razorpaySignature": signature,
			"updatedAt":         time.Now().UTC(),
		},
		"$unset": bson.M{"failureReason": ""},
	}
	res, err := r.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) MarkFailed(ctx context.Context, gatewayOrderID, paymentID, reason string) (bool, error) {
	set := bson.M{
		"status":        models.OrderFailed,
		"failureReason": reason,
		"updatedAt":     time.Now().UTC(),
	}
	if paymentID != "" {
		set["razorpayPaymentId"] = paymentID
	}
	res, err := r.orders.UpdateOne(ctx,
		bson.M{"razorpayOrderId": gatewayOrderID, "status": models.OrderPending},
		bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("mark order failed: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
