package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PhoneStore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	skipped   map[string]string
	existsErr error
	createErr error
	// hideExisting makes the duplicate check miss, as two concurrent
	// deliveries would both observe before either writes.
	hideExisting bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*models.Order{}, skipped: map[string]string{}}
}

func (f *fakeStore) OrderExistsForPayment(ctx context.Context, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.hideExisting {
		return false, nil
	}
	for _, o := range f.orders {
		if o.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateOrderIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	if _, ok := f.orders[order.OrderID]; ok {
		return false, nil
	}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	order.CreatedAt, order.UpdatedAt = now, now
	cp := *order
	f.orders[order.OrderID] = &cp
	return true, nil
}

func (f *fakeStore) MarkPaymentSkipped(ctx context.Context, paymentID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped[paymentID] = reason
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeStock struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeStock) ApplyStock(ctx context.Context, paymentID string, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, paymentID)
	return f.err
}

type fakeNotifier struct {
	orders []*models.Order
}

func (f *fakeNotifier) OrderCreated(order *models.Order) {
	f.orders = append(f.orders, order)
}

func succeededPayment() models.PaymentRecord {
	return models.PaymentRecord{
		ID:          "pay_123",
		Status:      models.PaymentSucceeded,
		AmountTotal: 4999,
		Currency:    "eur",
		Metadata:    map[string]string{"userId": "u1"},
		LineItems: []models.LineItem{
			{Description: "Phone X", AmountTotal: 4999, Quantity: 1, Product: &models.LineProduct{ID: "prod_x"}},
		},
		Customer:      &models.CustomerDetails{Email: "ada@example.com", Phone: "+33100000000"},
		PaymentMethod: "card",
	}
}

func change(before *models.PaymentRecord, after models.PaymentRecord) models.PaymentChange {
	return models.PaymentChange{PaymentID: after.ID, Before: before, After: after}
}

func TestHandleChange_CreatesOrder(t *testing.T) {
	st := newFakeStore()
	notify := &fakeNotifier{}
	r := New(st, zap.NewNop())
	r.Notify = notify

	before := &models.PaymentRecord{ID: "pay_123", Status: "processing"}
	res, err := r.HandleChange(context.Background(), change(before, succeededPayment()))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, OrderIDForPayment("pay_123"), res.OrderID)
	require.Equal(t, 1, st.count())

	order := st.orders[res.OrderID]
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "49.99", order.Total.String())
	assert.Equal(t, int64(4999), order.TotalMinor)
	assert.Equal(t, models.OrderPaid, order.Status)
	assert.Equal(t, "pay_123", order.PaymentID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Phone X", order.Items[0].Name)
	assert.Equal(t, "49.99", order.Items[0].Price.String())
	assert.Equal(t, int64(1), order.Items[0].Quantity)
	assert.Nil(t, order.ShippingAddress)
	assert.Nil(t, order.BillingAddress)
	assert.Equal(t, "ada@example.com", order.Email)
	assert.Equal(t, "+33100000000", order.Phone)
	assert.Equal(t, "card", order.PaymentMethod)
	assert.False(t, order.CreatedAt.IsZero())

	require.Len(t, notify.orders, 1)
	assert.Equal(t, res.OrderID, notify.orders[0].OrderID)
}

func TestHandleChange_NewDocumentAlreadySucceeded(t *testing.T) {
	st := newFakeStore()
	r := New(st, nil)

	res, err := r.HandleChange(context.Background(), change(nil, succeededPayment()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, 1, st.count())
}

func TestHandleChange_IgnoresNonTransitions(t *testing.T) {
	cases := []struct {
		name   string
		before *models.PaymentRecord
		after  string
	}{
		{"already succeeded", &models.PaymentRecord{Status: models.PaymentSucceeded}, models.PaymentSucceeded},
		{"still processing", &models.PaymentRecord{Status: "requires_payment_method"}, "processing"},
		{"canceled", nil, "canceled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newFakeStore()
			st.existsErr = errors.New("must not be called")
			r := New(st, nil)

			after := succeededPayment()
			after.Status = tc.after
			res, err := r.HandleChange(context.Background(), change(tc.before, after))
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, res.Outcome)
			assert.Equal(t, 0, st.count())
		})
	}
}

func TestHandleChange_MissingUserIDIsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	st := newFakeStore()
	r := New(st, zap.New(core))

	after := succeededPayment()
	after.Metadata = map[string]string{"cartId": "c1"}
	res, err := r.HandleChange(context.Background(), change(nil, after))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnattributable, res.Outcome)
	assert.Equal(t, 0, st.count())
	assert.Contains(t, st.skipped, "pay_123")
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestHandleChange_NonCanonicalUserKeyIsRejected(t *testing.T) {
	st := newFakeStore()
	r := New(st, nil)

	after := succeededPayment()
	after.Metadata = map[string]string{"userID": "u1"}
	res, err := r.HandleChange(context.Background(), change(nil, after))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnattributable, res.Outcome)
	assert.Equal(t, 0, st.count())
}

func TestHandleChange_RedeliveryDoesNotDuplicate(t *testing.T) {
	st := newFakeStore()
	r := New(st, nil)
	ch := change(&models.PaymentRecord{Status: "processing"}, succeededPayment())

	first, err := r.HandleChange(context.Background(), ch)
	require.NoError(t, err)
	second, err := r.HandleChange(context.Background(), ch)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, first.Outcome)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, st.count())
}

func TestHandleChange_ConcurrentDeliveriesWriteOnce(t *testing.T) {
	st := newFakeStore()
	st.hideExisting = true
	r := New(st, nil)
	ch := change(nil, succeededPayment())

	const workers = 16
	var wg sync.WaitGroup
	outcomes := make(chan Outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.HandleChange(context.Background(), ch)
			assert.NoError(t, err)
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	created := 0
	for o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, st.count())
}

func TestHandleChange_StoreFailuresPropagate(t *testing.T) {
	boom := errors.New("deadline exceeded")

	st := newFakeStore()
	st.existsErr = boom
	_, err := New(st, nil).HandleChange(context.Background(), change(nil, succeededPayment()))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, st.count())

	st = newFakeStore()
	st.createErr = boom
	_, err = New(st, nil).HandleChange(context.Background(), change(nil, succeededPayment()))
	assert.ErrorIs(t, err, boom)
}

func TestHandleChange_MissingPaymentID(t *testing.T) {
	_, err := New(newFakeStore(), nil).HandleChange(context.Background(), models.PaymentChange{After: succeededPayment()})
	assert.ErrorIs(t, err, ErrMissingPaymentID)
}

func TestHandleChange_StockRetriedOnRedelivery(t *testing.T) {
	st := newFakeStore()
	stock := &fakeStock{err: errors.New("products table locked")}
	r := New(st, nil)
	r.Stock = stock
	ch := change(nil, succeededPayment())

	_, err := r.HandleChange(context.Background(), ch)
	require.Error(t, err)
	assert.Equal(t, 1, st.count(), "order write must not depend on the stock step")

	stock.err = nil
	res, err := r.HandleChange(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, []string{"pay_123", "pay_123"}, stock.calls)
	assert.Equal(t, 1, st.count())
}

func TestHandleChange_MapsShippingAndBilling(t *testing.T) {
	st := newFakeStore()
	r := New(st, nil)

	after := succeededPayment()
	after.Shipping = &models.ShippingDetails{Name: "Ada", Address: &models.PostalAddress{Line1: "1 rue de Rivoli"}}
	after.Billing = &models.BillingDetails{Name: "Ada"}
	res, err := r.HandleChange(context.Background(), change(nil, after))
	require.NoError(t, err)

	order := st.orders[res.OrderID]
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, models.Address{Name: "Ada", Address: "1 rue de Rivoli"}, *order.ShippingAddress)
	assert.Nil(t, order.BillingAddress)
}

func TestOrderIDForPayment_Deterministic(t *testing.T) {
	assert.Equal(t, OrderIDForPayment("pay_123"), OrderIDForPayment("pay_123"))
	assert.NotEqual(t, OrderIDForPayment("pay_123"), OrderIDForPayment("pay_124"))
}

func TestHandleChange_NotifiesEvenWhenStockFails(t *testing.T) {
	st := newFakeStore()
	stock := &fakeStock{err: errors.New("products table locked")}
	notify := &fakeNotifier{}
	r := New(st, nil)
	r.Stock = stock
	r.Notify = notify
	ch := change(nil, succeededPayment())

	_, err := r.HandleChange(context.Background(), ch)
	require.Error(t, err)
	require.Len(t, notify.orders, 1)
	assert.Equal(t, OrderIDForPayment("pay_123"), notify.orders[0].OrderID)

	stock.err = nil
	res, err := r.HandleChange(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Len(t, notify.orders, 1)
}
