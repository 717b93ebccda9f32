package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fancystore/cart"
	"fancystore/errs"
	"fancystore/models"
	"fancystore/orders"
	"fancystore/pay"
	"fancystore/products"
	"fancystore/rdx"
	"fancystore/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	lockTTL  = 30 * time.Second
	lockWait = 5 * time.Second
)

// Stock is the catalog side of checkout.
type Stock interface {
	Check(ctx context.Context, lines []models.StockLine) ([]products.Line, error)
	Reserve(ctx context.Context, lines []models.StockLine) ([]products.Line, error)
	Release(ctx context.Context, lines []models.StockLine) error
}

// Carts is the cart side of checkout.
type Carts interface {
	Lines(ctx context.Context, userID string) ([]models.StockLine, error)
	Clear(ctx context.Context, userID string) error
}

type Options struct {
	KeyID    string
	Currency string
}

type Service struct {
	stock   Stock
	carts   Carts
	orders  orders.Repository
	gateway pay.Gateway
	locker  rdx.Locker
	opts    Options
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewService(stock Stock, carts Carts, orderRepo orders.Repository, gateway pay.Gateway, locker rdx.Locker, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &Service{
		stock:   stock,
		carts:   carts,
		orders:  orderRepo,
		gateway: gateway,
		locker:  locker,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckoutCart takes the whole cart out of stock and empties it. Either
// every line is taken or nothing changes.
func (s *Service) CheckoutCart(ctx context.Context, userID string) error {
	err := rdx.WithLock(ctx, s.locker, "checkout_lock:"+userID, lockTTL, lockWait, func() error {
		lines, err := s.carts.Lines(ctx, userID)
		if errors.Is(err, cart.ErrCartNotFound) || (err == nil && len(lines) == 0) {
			return errs.Validation("Cart is empty")
		}
		if err != nil {
			return err
		}

		if _, err := s.stock.Reserve(ctx, lines); err != nil {
			return err
		}
		if err := s.carts.Clear(ctx, userID); err != nil {
			if rerr := s.stock.Release(context.WithoutCancel(ctx), lines); rerr != nil {
				s.logger.WithError(rerr).WithField("userId", userID).Error("failed to release stock after cart clear failure")
			}
			return errs.Internal("Checkout failed", err)
		}
		s.logger.WithFields(logrus.Fields{"userId": userID, "lines": len(lines)}).Info("cart checked out")
		return nil
	})
	if errors.Is(err, rdx.ErrLockBusy) {
		return errs.Conflict("Checkout already in progress")
	}
	return err
}

// OrderLineInput accepts the product id under the names the storefront
// has used over time. Buy-now posts the whole product record, whose
// quantity field is the stock count, so only cartQuantity is read.
type OrderLineInput struct {
	ID           string `json:"id"`
	MongoID      string `json:"_id"`
	ProductID    string `json:"productId"`
	CartQuantity int    `json:"cartQuantity"`
}

func (l OrderLineInput) productID() string {
	for _, id := range []string{l.ProductID, l.ID, l.MongoID} {
		if id != "" {
			return id
		}
	}
	return ""
}

func (l OrderLineInput) quantity() int {
	if l.CartQuantity != 0 {
		return l.CartQuantity
	}
	return 1
}

type GatewayOrderInput struct {
	Amount          *decimal.Decimal       `json:"amount"`
	Products        []OrderLineInput       `json:"products"`
	DeliveryDetails models.DeliveryDetails `json:"deliveryDetails"`
	FromCart        bool                   `json:"fromCart"`
}

type GatewayOrderResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	KeyID    string `json:"key_id"`
}

func validateDelivery(d *models.DeliveryDetails) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.Pincode = strings.TrimSpace(d.Pincode)
	for _, f := range []struct{ name, value string }{
		{"name", d.Name},
		{"phone", d.Phone},
		{"address", d.Address},
		{"city", d.City},
		{"pincode", d.Pincode},
	} {
		if f.value == "" {
			return errs.Validation("Delivery " + f.name + " is required")
		}
	}
	return nil
}

// CreateGatewayOrder prices the lines from the catalog, opens a gateway
// order and records it as Pending. Stock is only checked here; it is
// taken when the payment is verified.
func (s *Service) CreateGatewayOrder(ctx context.Context, userID string, isAdmin bool, in GatewayOrderInput) (*GatewayOrderResponse, error) {
	if err := validateDelivery(&in.DeliveryDetails); err != nil {
		return nil, err
	}
	if len(in.Products) == 0 {
		return nil, errs.Validation("At least one product is required")
	}
	lines := make([]models.StockLine, 0, len(in.Products))
	for _, p := range in.Products {
		lines = append(lines, models.StockLine{ProductID: p.productID(), Quantity: p.quantity()})
	}

	resolved, err := s.stock.Check(ctx, lines)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	orderLines := make([]models.OrderLine, 0, len(resolved))
	for _, l := range resolved {
		unit := decimal.NewFromFloat(l.Product.Cost)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
		orderLines = append(orderLines, models.OrderLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			UnitCost:  l.Product.Cost,
			Quantity:  l.Quantity,
		})
	}
	total = total.Round(2)
	if in.Amount != nil && !in.Amount.Round(2).Equal(total) {
		return nil, errs.Validation("Amount mismatch")
	}
	if !total.IsPositive() {
		return nil, errs.Validation("Amount must be greater than zero")
	}
	minor := total.Shift(2).Round(0).IntPart()

	now := s.now()
	gwOrder, err := s.gateway.CreateOrder(ctx, pay.OrderRequest{
		Amount:   minor,
		Currency: s.opts.Currency,
		Receipt:  fmt.Sprintf("order_%d", now.UnixMilli()),
	})
	if err != nil {
		return nil, err
	}

	owner := userID
	if isAdmin {
		owner = ""
	}
	order := &models.Order{
		ID:              utils.GetUUID(),
		UserID:          owner,
		GatewayOrderID:  gwOrder.ID,
		Amount:          total.InexactFloat64(),
		Currency:        s.opts.Currency,
		Status:          models.OrderPending,
		Products:        orderLines,
		DeliveryDetails: in.DeliveryDetails,
		FromCart:        in.FromCart,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.WithError(err).WithField("razorpayOrderId", gwOrder.ID).Error("gateway order created but not recorded")
		return nil, errs.Internal("Order creation failed", err)
	}

	s.logger.WithFields(logrus.Fields{
		"orderId":         order.ID,
		"razorpayOrderId": gwOrder.ID,
		"amount":          total.StringFixed(2),
	}).Info("gateway order created")

	currency := gwOrder.Currency
	if currency == "" {
		currency = s.opts.Currency
	}
	amount := gwOrder.Amount
	if amount == 0 {
		amount = minor
	}
	return &GatewayOrderResponse{ID: gwOrder.ID, Currency: currency, Amount: amount, KeyID: s.opts.KeyID}, nil
}
