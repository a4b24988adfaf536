package processor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

var ErrWebhookSecretMissing = errors.New("webhook secret not configured")

type Webhook struct {
	Secret string
}

// Verify checks the Stripe-Signature header against the raw payload and
// decodes the event.
func (w Webhook) Verify(payload []byte, signature string) (stripe.Event, error) {
	if w.Secret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, signature, w.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// HandlesEvent reports whether the event can complete a checkout payment.
func HandlesEvent(eventType string) bool {
	return eventType == EventCheckoutCompleted || eventType == EventCheckoutAsyncPaymentSucceed
}

func DecodeSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	if event.Data == nil {
		return nil, errors.New("event has no data")
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if s.ID == "" {
		return nil, errors.New("checkout session has no id")
	}
	return &s, nil
}
