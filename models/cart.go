package models

import "time"

// CartLine is a single product line in a user's cart.
type CartLine struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is keyed by its owner; there is at most one per user.
type Cart struct {
	UserID    string     `json:"userId" bson:"_id"`
	Products  []CartLine `json:"products" bson:"products"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Lines converts the cart into stock lines for the catalog.
func (c *Cart) Lines() []StockLine {
	lines := make([]StockLine, 0, len(c.Products))
	for _, p := range c.Products {
		lines = append(lines, StockLine{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return lines
}

// CartItem is a cart line joined with its current product record.
type CartItem struct {
	Product
	CartQuantity int `json:"cartQuantity"`
}
