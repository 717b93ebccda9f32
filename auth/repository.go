package auth

import (
	"context"
	"errors"
	"fmt"

	"fancystore/db"
	"fancystore/errs"
	"fancystore/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound     = errs.NotFound("User not found")
	ErrAlreadyExist = errs.Conflict("User already exists")
)

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	SetAdmin(ctx context.Context, id string) error
}

type MongoRepository struct {
	users *mongo.Collection
}

func NewMongoRepository(users *mongo.Collection) *MongoRepository {
	return &MongoRepository{users: users}
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) error {
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if db.IsDuplicateKey(err) {
			return ErrAlreadyExist
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoRepository) SetAdmin(ctx context.Context, id string) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isAdmin": true}})
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
