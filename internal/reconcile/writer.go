package reconcile

import (
	"context"
	"fmt"

	"PhoneStore/internal/models"
	"PhoneStore/internal/money"
	"PhoneStore/internal/payments"

	"github.com/google/uuid"
)

// orderNamespace scopes the name-based order ids derived from payment ids.
var orderNamespace = uuid.MustParse("5f0c2a7e-6a43-4d1e-9c55-2f6f0b8e4a10")

// OrderIDForPayment is the order id every delivery for paymentID writes to.
func OrderIDForPayment(paymentID string) string {
	return uuid.NewSHA1(orderNamespace, []byte(paymentID)).String()
}

func buildOrder(userID, paymentID string, rec models.PaymentRecord) *models.Order {
	return &models.Order{
		OrderID:         OrderIDForPayment(paymentID),
		UserID:          userID,
		Items:           payments.MapItems(rec.LineItems),
		Total:           money.FromMinor(rec.AmountTotal),
		TotalMinor:      rec.AmountTotal,
		Currency:        rec.Currency,
		Status:          models.OrderPaid,
		PaymentID:       paymentID,
		ShippingAddress: payments.MapShipping(rec.Shipping),
		BillingAddress:  payments.MapBilling(rec.Billing),
		Phone:           contactPhone(rec),
		Email:           contactEmail(rec),
		PaymentMethod:   rec.PaymentMethod,
	}
}

func contactPhone(rec models.PaymentRecord) string {
	if rec.Customer != nil && rec.Customer.Phone != "" {
		return rec.Customer.Phone
	}
	if rec.Shipping != nil {
		return rec.Shipping.Phone
	}
	return ""
}

func contactEmail(rec models.PaymentRecord) string {
	if rec.Customer != nil && rec.Customer.Email != "" {
		return rec.Customer.Email
	}
	return rec.ReceiptEmail
}

// writeOrder persists order unless another delivery already did. The store
// assigns CreatedAt and UpdatedAt.
func (r *Reconciler) writeOrder(ctx context.Context, order *models.Order) (bool, error) {
	created, err := r.Store.CreateOrderIfAbsent(ctx, order)
	if err != nil {
		return false, fmt.Errorf("write order for payment %s: %w", order.PaymentID, err)
	}
	return created, nil
}
