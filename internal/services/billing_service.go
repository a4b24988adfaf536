package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrBillingUnavailable = errors.New("billing portal not configured")
	ErrMissingEmail       = errors.New("missing email")
)

type CustomerStore interface {
	LinkCustomer(ctx context.Context, userID, customerID, email string) error
	GetCustomerID(ctx context.Context, userID string) (string, error)
}

type BillingPortal interface {
	FindOrCreateCustomer(ctx context.Context, userID, email string) (string, error)
	PortalSession(ctx context.Context, customerID string) (string, error)
}

type BillingService struct {
	Customers CustomerStore
	Portal    BillingPortal
}

// OpenPortal returns a billing portal URL for userID. A customer linked by a
// previous payment is reused; otherwise one is found or created by email and
// linked.
func (s BillingService) OpenPortal(ctx context.Context, userID, email string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	if s.Portal == nil {
		return "", ErrBillingUnavailable
	}

	customerID, err := s.Customers.GetCustomerID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if customerID == "" {
		if email == "" {
			return "", ErrMissingEmail
		}
		customerID, err = s.Portal.FindOrCreateCustomer(ctx, userID, email)
		if err != nil {
			return "", fmt.Errorf("find customer: %w", err)
		}
		if err := s.Customers.LinkCustomer(ctx, userID, customerID, email); err != nil {
			return "", err
		}
	}

	url, err := s.Portal.PortalSession(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}
