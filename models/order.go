package models

import "time"

type OrderStatus string

const (
	OrderPending OrderStatus = "Pending"
	OrderPaid    OrderStatus = "Paid"
	OrderFailed  OrderStatus = "Failed"
)

// OrderLine snapshots the product name and unit cost at order time.
type OrderLine struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	UnitCost  float64 `json:"unitCost" bson:"unitCost"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

type DeliveryDetails struct {
	Name    string `json:"name" bson:"name"`
	Phone   string `json:"phone" bson:"phone"`
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	Pincode string `json:"pincode" bson:"pincode"`
}

// Order tracks a payment-gateway order from creation to settlement.
// UserID is empty for admin-initiated orders.
type Order struct {
	ID               string          `json:"id" bson:"_id"`
	UserID           string          `json:"userId,omitempty" bson:"userId,omitempty"`
	GatewayOrderID   string          `json:"razorpayOrderId" bson:"razorpayOrderId"`
	GatewayPaymentID string          `json:"razorpayPaymentId,omitempty" bson:"razorpayPaymentId,omitempty"`
	Signature        string          `json:"razorpaySignature,omitempty" bson:"razorpaySignature,omitempty"`
	Amount           float64         `json:"amount" bson:"amount"`
	Currency         string          `json:"currency" bson:"currency"`
	Status           OrderStatus     `json:"status" bson:"status"`
	Products         []OrderLine     `json:"products" bson:"products"`
	DeliveryDetails  DeliveryDetails `json:"deliveryDetails" bson:"deliveryDetails"`
	FromCart         bool            `json:"fromCart" bson:"fromCart"`
	FailureReason    string          `json:"failureReason,omitempty" bson:"failureReason,omitempty"`
	CreatedAt        time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt" bson:"updatedAt"`
}

func (o *Order) Lines() []StockLine {
	lines := make([]StockLine, 0, len(o.Products))
	for _, p := range o.Products {
		lines = append(lines, StockLine{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return lines
}

// OrderView is an order as listed to admins: each line carries the current
// product record, or nil when the product has since been deleted.
type OrderView struct {
	Order
	Items []OrderItemView `json:"items"`
}

type OrderItemView struct {
	OrderLine
	Product *Product `json:"product"`
}
