package store

import "context"

// LinkCustomer records the processor customer for userID. The latest link
// wins, an empty email keeps the stored one.
func (s *Store) LinkCustomer(ctx context.Context, userID, customerID, email string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO customers (user_id, stripe_customer_id, email)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO UPDATE
		SET stripe_customer_id=EXCLUDED.stripe_customer_id,
			email=COALESCE(NULLIF(EXCLUDED.email, ''), customers.email),
			updated_at=now()
	`, userID, customerID, email)
	return err
}

func (s *Store) GetCustomerID(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `SELECT stripe_customer_id FROM customers WHERE user_id=$1`, userID).Scan(&id)
	return id, err
}
