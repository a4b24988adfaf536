package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"PhoneStore/internal/models"
	"PhoneStore/internal/money"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	DB DB
}

func New(db DB) *Store {
	return &Store{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const orderColumns = `order_id, user_id, items, total_minor, currency, status,
	payment_id, shipping_address, billing_address, phone, email, payment_method,
	created_at, updated_at`

func (s *Store) OrderExistsForPayment(ctx context.Context, paymentID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE payment_id=$1)`, paymentID).Scan(&exists)
	return exists, err
}

// CreateOrderIfAbsent inserts the order unless one already exists for its id
// or payment id. Timestamps are assigned by the database and written back
// into order. created is false when the row already existed.
func (s *Store) CreateOrderIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return false, err
	}
	shipping, err := jsonOrNil(order.ShippingAddress)
	if err != nil {
		return false, err
	}
	billing, err := jsonOrNil(order.BillingAddress)
	if err != nil {
		return false, err
	}

	err = s.DB.QueryRow(ctx, `
		INSERT INTO orders (
			order_id, user_id, items, total_minor, currency, status,
			payment_id, shipping_address, billing_address, phone, email, payment_method
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at
	`,
		order.OrderID,
		order.UserID,
		items,
		order.TotalMinor,
		order.Currency,
		order.Status,
		order.PaymentID,
		shipping,
		billing,
		order.Phone,
		order.Email,
		order.PaymentMethod,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID)
	return scanOrder(row)
}

func (s *Store) ListUserOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order from one status to the next. It returns
// the number of rows changed, zero when the order was not in status from.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (int64, error) {
	res, err := s.DB.Exec(ctx, `
		UPDATE orders
		SET status=$3, updated_at=now()
		WHERE order_id=$1 AND status=$2
	`, orderID, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var items, shipping, billing []byte

	err := row.Scan(
		&order.OrderID,
		&order.UserID,
		&items,
		&order.TotalMinor,
		&order.Currency,
		&order.Status,
		&order.PaymentID,
		&shipping,
		&billing,
		&order.Phone,
		&order.Email,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Total = money.FromMinor(order.TotalMinor)
	order.Items = []models.OrderItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, err
		}
	}
	if order.ShippingAddress, err = decodeAddress(shipping); err != nil {
		return nil, err
	}
	if order.BillingAddress, err = decodeAddress(billing); err != nil {
		return nil, err
	}
	return &order, nil
}

func decodeAddress(data []byte) (*models.Address, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var addr models.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func jsonOrNil(v *models.Address) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// SyncPayment mirrors the latest snapshot of a payment and returns the status
// stored before this call, empty when the payment was not known yet.
// transition records that this delivery saw the payment enter succeeded; once
// set it is never cleared.
func (s *Store) SyncPayment(ctx context.Context, rec models.PaymentRecord, transition bool) (string, error) {
	record, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	var prev sql.NullString
	err = s.DB.QueryRow(ctx, `
		WITH prev AS (SELECT status FROM payments WHERE payment_id=$1)
		INSERT INTO payments (payment_id, status, record, transition_seen_at)
		VALUES ($1,$2,$3, CASE WHEN $4::boolean THEN now() END)
		ON CONFLICT (payment_id) DO UPDATE
		SET status=EXCLUDED.status,
			record=EXCLUDED.record,
			transition_seen_at=COALESCE(payments.transition_seen_at, EXCLUDED.transition_seen_at),
			updated_at=now()
		RETURNING (SELECT status FROM prev)
	`, rec.ID, rec.Status, record, transition).Scan(&prev)
	if err != nil {
		return "", err
	}
	return prev.String, nil
}

func (s *Store) MarkPaymentSkipped(ctx context.Context, paymentID, reason string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE payments
		SET skipped_reason=$2, updated_at=now()
		WHERE payment_id=$1
	`, paymentID, reason)
	return err
}

// ListUnreconciledPayments returns succeeded payments whose success
// transition was observed but produced no order, that were not skipped, and
// that have been idle for at least grace. Payments only ever seen as already
// succeeded are never returned.
func (s *Store) ListUnreconciledPayments(ctx context.Context, grace time.Duration, limit int) ([]models.PaymentRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT p.record
		FROM payments p
		WHERE p.status=$1
			AND p.transition_seen_at IS NOT NULL
			AND p.skipped_reason IS NULL
			AND p.updated_at < now() - make_interval(secs => $2)
			AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.payment_id=p.payment_id)
		ORDER BY p.updated_at
		LIMIT $3
	`, models.PaymentSucceeded, grace.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PaymentRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec models.PaymentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
