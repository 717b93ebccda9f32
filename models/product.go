package models

// Product is a catalog record. ID is a hex ObjectID used as the foreign key
// by cart and order lines.
type Product struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Cost     float64 `json:"cost" bson:"cost"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Category string  `json:"category" bson:"category"`
	Image    string  `json:"image" bson:"image"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name     *string  `json:"name,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Category *string  `json:"category,omitempty"`
	Image    *string  `json:"image,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Cost == nil && p.Quantity == nil && p.Category == nil && p.Image == nil
}

// Apply merges the patch into prod.
func (p ProductPatch) Apply(prod *Product) {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Cost != nil {
		prod.Cost = *p.Cost
	}
	if p.Quantity != nil {
		prod.Quantity = *p.Quantity
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
}

// StockLine is a (product, quantity) pair to take from or give back to the
// catalog.
type StockLine struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}
