package services

import (
	"context"
	"errors"

	"PhoneStore/internal/models"

	"github.com/jackc/pgx/v5"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStore interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

type CatalogService struct {
	Store ProductStore
}

func (s CatalogService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products, nil
}

func (s CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	p, err := s.Store.GetProduct(ctx, productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}
