package pay

import (
	"context"
	"errors"
	"time"

	"fancystore/errs"
	"fancystore/models"
	"fancystore/orders"
	"fancystore/products"
	"fancystore/rdx"

	"github.com/sirupsen/logrus"
)

const (
	lockTTL  = 30 * time.Second
	lockWait = 5 * time.Second
)

// Stock takes and returns catalog stock.
type Stock interface {
	Reserve(ctx context.Context, lines []models.StockLine) ([]products.Line, error)
	Release(ctx context.Context, lines []models.StockLine) error
}

// CartClearer empties a shopper's cart.
type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type FailureRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Reason    string `json:"reason"`
}

// PaymentService settles gateway orders.
type PaymentService struct {
	signer *Signer
	orders orders.Repository
	stock  Stock
	carts  CartClearer
	locker rdx.Locker
	logger logrus.FieldLogger
}

func NewPaymentService(signer *Signer, orderRepo orders.Repository, stock Stock, carts CartClearer, locker rdx.Locker, logger logrus.FieldLogger) *PaymentService {
	return &PaymentService{
		signer: signer,
		orders: orderRepo,
		stock:  stock,
		carts:  carts,
		locker: locker,
		logger: logger,
	}
}

func lockKey(gatewayOrderID string) string { return "payment_lock:" + gatewayOrderID }

func (p *PaymentService) withLock(ctx context.Context, gatewayOrderID string, fn func() error) error {
	err := rdx.WithLock(ctx, p.locker, lockKey(gatewayOrderID), lockTTL, lockWait, fn)
	if errors.Is(err, rdx.ErrLockBusy) {
		return errs.Conflict("Payment is already being processed")
	}
	return err
}

// Verify checks the callback signature and moves the order to Paid,
// taking its stock exactly once. Verifying a Paid order again succeeds
// without touching stock.
func (p *PaymentService) Verify(ctx context.Context, in VerifyRequest) error {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return errs.Validation("razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	if !p.signer.Verify(in.OrderID, in.PaymentID, in.Signature) {
		return errs.Gateway("Invalid signature", nil)
	}

	log := p.logger.WithField("razorpayOrderId", in.OrderID)
	var settled *models.Order
	err := p.withLock(ctx, in.OrderID, func() error {
		order, err := p.orders.FindByGatewayID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderPaid {
			log.Info("payment already verified")
			return nil
		}

		lines := order.Lines()
		if _, err := p.stock.Reserve(ctx, lines); err != nil {
			return err
		}
		ok, err := p.orders.MarkPaid(ctx, in.OrderID, in.PaymentID, in.Signature)
		if err != nil || !ok {
			if rerr := p.stock.Release(context.WithoutCancel(ctx), lines); rerr != nil {
				log.WithError(rerr).Error("failed to release stock after unsuccessful settlement")
			}
			if err != nil {
				return err
			}
			return errs.Conflict("Order is no longer payable")
		}
		settled = order
		return nil
	})
	if err != nil {
		return err
	}

	if settled != nil {
		log.WithField("razorpayPaymentId", in.PaymentID).Info("payment verified")
		if settled.FromCart && settled.UserID != "" {
			if err := p.carts.Clear(ctx, settled.UserID); err != nil {
				log.WithError(err).Warn("failed to clear cart after payment")
			}
		}
	}
	return nil
}

// Fail records a gateway-reported failure on a Pending order. The caller
// must own the order unless they are an admin.
func (p *PaymentService) Fail(ctx context.Context, userID string, isAdmin bool, in FailureRequest) error {
	if in.OrderID == "" {
		return errs.Validation("razorpay_order_id is required")
	}
	if in.Reason == "" {
		in.Reason = "Payment failed"
	}

	return p.withLock(ctx, in.OrderID, func() error {
		order, err := p.orders.FindByGatewayID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if !isAdmin && order.UserID != "" && order.UserID != userID {
			return errs.Forbidden("Access denied")
		}
		switch order.Status {
		case models.OrderPaid:
			return errs.Conflict("Order is already paid")
		case models.OrderFailed:
			return nil
		}
		if _, err := p.orders.MarkFailed(ctx, in.OrderID, in.PaymentID, in.Reason); err != nil {
			return err
		}
		p.logger.WithFields(logrus.Fields{"razorpayOrderId": in.OrderID, "reason": in.Reason}).Info("payment marked failed")
		return nil
	})
}
