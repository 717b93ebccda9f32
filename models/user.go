package models

import "time"

type User struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	Password  string    `json:"-" bson:"password"`
	IsAdmin   bool      `json:"isAdmin" bson:"isAdmin"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// UserSummary is what login returns and what clients persist.
type UserSummary struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

func (u User) Summary() UserSummary {
	return UserSummary{Email: u.Email, IsAdmin: u.IsAdmin}
}

// Credentials is the register/login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}
