package services

import (
	"context"
	"errors"

	"PhoneStore/internal/pricing"

	"github.com/stripe/stripe-go/v76"
)

var ErrCheckoutUnavailable = errors.New("payment processor not configured")

type SessionCreator interface {
	CreateSession(ctx context.Context, userID, email string, quote pricing.Quote) (*stripe.CheckoutSession, error)
}

type CheckoutService struct {
	Products ProductStore
	Pricing  pricing.Service
	Sessions SessionCreator
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
}

// Checkout prices the cart from the catalog and opens a processor session.
// Client-submitted prices are never trusted.
func (s CheckoutService) Checkout(ctx context.Context, userID, email string, lines []pricing.Line) (*CheckoutResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if s.Sessions == nil {
		return nil, ErrCheckoutUnavailable
	}
	if len(lines) == 0 {
		return nil, pricing.ErrEmptyCart
	}

	catalog, err := s.Products.GetProductsByIDs(ctx, pricing.ProductIDs(lines))
	if err != nil {
		return nil, err
	}
	quote, err := s.Pricing.Quote(lines, catalog)
	if err != nil {
		return nil, err
	}

	session, err := s.Sessions.CreateSession(ctx, userID, email, quote)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		SessionID: session.ID,
		URL:       session.URL,
		Total:     quote.Total().StringFixed(2),
		Currency:  quote.Currency,
	}, nil
}
