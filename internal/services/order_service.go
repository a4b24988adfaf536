package services

import (
	"context"
	"errors"

	"PhoneStore/internal/models"

	"github.com/jackc/pgx/v5"
)

var (
	ErrMissingUserID    = errors.New("missing user id")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrStatusTransition = errors.New("order status transition not allowed")
	ErrConcurrentUpdate = errors.New("order status changed concurrently")
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (int64, error)
}

type OrderService struct {
	Store OrderStore
}

func (s OrderService) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	orders, err := s.Store.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// GetOrder returns the order only to its owner; other users see not found.
func (s OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s OrderService) AdvanceStatus(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, ErrStatusTransition
	}
	n, err := s.Store.UpdateOrderStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConcurrentUpdate
	}
	return s.Store.GetOrder(ctx, orderID)
}
