// Package reconcile turns a payment's transition into "succeeded" into
// exactly one persisted order.
//
// Notifications are delivered at least once and possibly concurrently for the
// same payment, on different instances. The order id is derived from the
// payment id and written with an insert-if-absent, so duplicate deliveries
// cannot produce a second order. Store failures are returned to the caller so
// the delivery is retried; everything else (ignored transitions, payments
// without a user, malformed nested fields) completes without error.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"PhoneStore/internal/models"
	"PhoneStore/internal/payments"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeUnattributable Outcome = "unattributable"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeCreated        Outcome = "created"
)

type Result struct {
	Outcome Outcome
	OrderID string
}

var ErrMissingPaymentID = errors.New("payment change has no payment id")

type OrderStore interface {
	OrderExistsForPayment(ctx context.Context, paymentID string) (bool, error)
	CreateOrderIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	MarkPaymentSkipped(ctx context.Context, paymentID, reason string) error
}

// StockApplier decrements stock for a paid order. Implementations must be
// idempotent per payment id.
type StockApplier interface {
	ApplyStock(ctx context.Context, paymentID string, items []models.OrderItem) error
}

type Notifier interface {
	OrderCreated(order *models.Order)
}

type Reconciler struct {
	Store  OrderStore
	Stock  StockApplier
	Notify Notifier
	Log    *zap.Logger
}

func New(st OrderStore, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{Store: st, Log: log}
}

// IsSuccessTransition reports whether after is the first snapshot in status
// succeeded. A nil before means the document is new.
func IsSuccessTransition(before *models.PaymentRecord, after models.PaymentRecord) bool {
	if after.Status != models.PaymentSucceeded {
		return false
	}
	return before == nil || before.Status != models.PaymentSucceeded
}

func (r *Reconciler) HandleChange(ctx context.Context, change models.PaymentChange) (Result, error) {
	if change.PaymentID == "" {
		return Result{}, ErrMissingPaymentID
	}
	if !IsSuccessTransition(change.Before, change.After) {
		return Result{Outcome: OutcomeIgnored}, nil
	}

	log := r.logger().With(zap.String("payment_id", change.PaymentID))
	log.Info("payment succeeded")

	userID, err := payments.ResolveUserID(change.After.Metadata)
	if err != nil {
		log.Warn("payment cannot be attributed to a user, skipping order creation", zap.Error(err))
		if err := r.Store.MarkPaymentSkipped(ctx, change.PaymentID, err.Error()); err != nil {
			log.Warn("mark payment skipped failed", zap.Error(err))
		}
		return Result{Outcome: OutcomeUnattributable}, nil
	}
	log = log.With(zap.String("user_id", userID))

	order := buildOrder(userID, change.PaymentID, change.After)

	exists, err := r.Store.OrderExistsForPayment(ctx, change.PaymentID)
	if err != nil {
		return Result{}, fmt.Errorf("duplicate check for payment %s: %w", change.PaymentID, err)
	}
	if exists {
		log.Info("order already exists for payment", zap.String("order_id", order.OrderID))
		if err := r.applyStock(ctx, order); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeDuplicate, OrderID: order.OrderID}, nil
	}

	created, err := r.writeOrder(ctx, order)
	if err != nil {
		return Result{}, err
	}
	if !created {
		log.Info("order written by a concurrent delivery", zap.String("order_id", order.OrderID))
		return Result{Outcome: OutcomeDuplicate, OrderID: order.OrderID}, nil
	}

	// The order exists from here on; notify before the stock step so a stock
	// failure retried as a duplicate does not lose the notification.
	if r.Notify != nil {
		r.Notify.OrderCreated(order)
	}
	if err := r.applyStock(ctx, order); err != nil {
		return Result{}, err
	}

	log.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.String("total", order.Total.String()),
		zap.Int("items", len(order.Items)),
		zap.Bool("shipping", order.ShippingAddress != nil))
	return Result{Outcome: OutcomeCreated, OrderID: order.OrderID}, nil
}

func (r *Reconciler) applyStock(ctx context.Context, order *models.Order) error {
	if r.Stock == nil {
		return nil
	}
	if err := r.Stock.ApplyStock(ctx, order.PaymentID, order.Items); err != nil {
		return fmt.Errorf("apply stock for payment %s: %w", order.PaymentID, err)
	}
	return nil
}

func (r *Reconciler) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}
