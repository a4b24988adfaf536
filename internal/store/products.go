package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PhoneStore/internal/models"
	"PhoneStore/internal/money"
)

// ErrUnknownProduct means a paid item does not reference a catalog product.
var ErrUnknownProduct = errors.New("product not in catalog")

const productColumns = `product_id, name, description, price_minor, image,
	features, category, stock, created_at, updated_at`

func (s *Store) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE product_id=$1`, productID)
	return scanProduct(row)
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ProductID] = p
	}
	return out, rows.Err()
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var features []byte
	err := row.Scan(
		&p.ProductID,
		&p.Name,
		&p.Description,
		&p.PriceMinor,
		&p.Image,
		&features,
		&p.Category,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Price = money.FromMinor(p.PriceMinor)
	p.Features = []string{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// ApplyStock decrements stock once per (payment, product). Re-running it for
// the same payment is a no-op, so it can be retried after a partial failure.
// An item that matches no catalog product rolls the whole step back.
func (s *Store) ApplyStock(ctx context.Context, paymentID string, items []models.OrderItem) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var order []string
	qty := make(map[string]int64)
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		if _, ok := qty[item.ID]; !ok {
			order = append(order, item.ID)
		}
		qty[item.ID] += item.Quantity
	}

	for _, productID := range order {
		res, err := tx.Exec(ctx, `
			INSERT INTO stock_movements (payment_id, product_id, quantity)
			VALUES ($1,$2,$3)
			ON CONFLICT (payment_id, product_id) DO NOTHING
		`, paymentID, productID, qty[productID])
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			continue
		}
		res, err = tx.Exec(ctx, `
			UPDATE products
			SET stock=GREATEST(stock-$2, 0), updated_at=now()
			WHERE product_id=$1
		`, productID, qty[productID])
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
		}
	}
	return tx.Commit(ctx)
}
