package utils

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func GetUUID() string {
	return uuid.New().String()
}

// NewObjectID returns a fresh hex ObjectID for catalog and user records.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}
