// Package worker replays succeeded payments whose change notification never
// produced an order, for example when every redelivery failed.
package worker

import (
	"context"
	"time"

	"PhoneStore/internal/models"
	"PhoneStore/internal/reconcile"

	"go.uber.org/zap"
)

type PaymentLister interface {
	ListUnreconciledPayments(ctx context.Context, grace time.Duration, limit int) ([]models.PaymentRecord, error)
}

type Reconciler interface {
	HandleChange(ctx context.Context, change models.PaymentChange) (reconcile.Result, error)
}

type Worker struct {
	Payments   PaymentLister
	Reconciler Reconciler
	Interval   time.Duration
	BatchSize  int
	// Grace leaves recent payments to the live notification path.
	Grace time.Duration
	Log   *zap.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.SyncOnce(ctx); err != nil {
			w.Log.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce reconciles one batch and returns how many orders it created.
// Per-payment failures are logged and left for the next tick.
func (w *Worker) SyncOnce(ctx context.Context) (int, error) {
	batch := w.BatchSize
	if batch <= 0 {
		batch = 100
	}
	pending, err := w.Payments.ListUnreconciledPayments(ctx, w.Grace, batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	created := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		res, err := w.Reconciler.HandleChange(ctx, models.PaymentChange{PaymentID: rec.ID, After: rec})
		if err != nil {
			w.Log.Warn("replay payment failed", zap.String("payment_id", rec.ID), zap.Error(err))
			continue
		}
		if res.Outcome == reconcile.OutcomeCreated {
			created++
			w.Log.Info("order recovered", zap.String("payment_id", rec.ID), zap.String("order_id", res.OrderID))
		}
	}
	w.Log.Info("sweep done", zap.Int("pending", len(pending)), zap.Int("created", created))
	return created, nil
}
