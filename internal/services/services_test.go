package services

import (
	"context"
	"errors"
	"testing"

	"PhoneStore/internal/models"
	"PhoneStore/internal/pricing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type memOrders struct {
	orders map[string]*models.Order
}

func (m *memOrders) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListUserOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (int64, error) {
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return 0, nil
	}
	o.Status = to
	return 1, nil
}

func TestOrderService_GetOrderOwnerOnly(t *testing.T) {
	svc := OrderService{Store: &memOrders{orders: map[string]*models.Order{
		"o1": {OrderID: "o1", UserID: "u1", Status: models.OrderPaid},
	}}}

	o, err := svc.GetOrder(context.Background(), "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.OrderID)

	_, err = svc.GetOrder(context.Background(), "u2", "o1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "", "o1")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestOrderService_ListOrdersNeverNil(t *testing.T) {
	svc := OrderService{Store: &memOrders{orders: map[string]*models.Order{}}}

	orders, err := svc.ListOrders(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderService_AdvanceStatus(t *testing.T) {
	store := &memOrders{orders: map[string]*models.Order{
		"o1": {OrderID: "o1", UserID: "u1", Status: models.OrderPaid},
	}}
	svc := OrderService{Store: store}

	o, err := svc.AdvanceStatus(context.Background(), "o1", models.OrderProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, o.Status)

	_, err = svc.AdvanceStatus(context.Background(), "o1", models.OrderDelivered)
	assert.ErrorIs(t, err, ErrStatusTransition)

	_, err = svc.AdvanceStatus(context.Background(), "o1", models.OrderStatus("lost"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.AdvanceStatus(context.Background(), "nope", models.OrderShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

type memProducts struct {
	products map[string]*models.Product
	err      error
}

func (m *memProducts) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, m.err
}

func (m *memProducts) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memProducts) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]*models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type recordingSessions struct {
	userID string
	quote  pricing.Quote
}

func (r *recordingSessions) CreateSession(ctx context.Context, userID, email string, quote pricing.Quote) (*stripe.CheckoutSession, error) {
	r.userID = userID
	r.quote = quote
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
}

func TestCheckoutService_UsesCatalogPrices(t *testing.T) {
	sessions := &recordingSessions{}
	svc := CheckoutService{
		Products: &memProducts{products: map[string]*models.Product{
			"phone-x": {ProductID: "phone-x", Name: "Phone X", PriceMinor: 99900},
		}},
		Pricing:  pricing.Service{Currency: "eur"},
		Sessions: sessions,
	}

	res, err := svc.Checkout(context.Background(), "u1", "", []pricing.Line{{ProductID: "phone-x", Quantity: 2}})
	require.NoError(t, err)

	assert.Equal(t, "cs_1", res.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", res.URL)
	assert.Equal(t, "1998.00", res.Total)
	assert.Equal(t, "u1", sessions.userID)
	assert.Equal(t, int64(99900), sessions.quote.Lines[0].UnitMinor)
}

func TestCheckoutService_Errors(t *testing.T) {
	svc := CheckoutService{Products: &memProducts{}, Sessions: &recordingSessions{}}

	_, err := svc.Checkout(context.Background(), "", "", []pricing.Line{{ProductID: "a", Quantity: 1}})
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = svc.Checkout(context.Background(), "u1", "", nil)
	assert.ErrorIs(t, err, pricing.ErrEmptyCart)

	_, err = svc.Checkout(context.Background(), "u1", "", []pricing.Line{{ProductID: "a", Quantity: 1}})
	assert.ErrorIs(t, err, pricing.ErrUnknownProduct)

	boom := errors.New("db down")
	svc.Products = &memProducts{err: boom}
	_, err = svc.Checkout(context.Background(), "u1", "", []pricing.Line{{ProductID: "a", Quantity: 1}})
	assert.ErrorIs(t, err, boom)

	_, err = CheckoutService{}.Checkout(context.Background(), "u1", "", []pricing.Line{{ProductID: "a", Quantity: 1}})
	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
}

type memCustomers struct {
	links map[string]string
	err   error
}

func (m *memCustomers) LinkCustomer(ctx context.Context, userID, customerID, email string) error {
	m.links[userID] = customerID
	return nil
}

func (m *memCustomers) GetCustomerID(ctx context.Context, userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	id, ok := m.links[userID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return id, nil
}

type fakePortal struct {
	lookups   []string
	sessionOf string
}

func (f *fakePortal) FindOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	f.lookups = append(f.lookups, email)
	return "cus_new", nil
}

func (f *fakePortal) PortalSession(ctx context.Context, customerID string) (string, error) {
	f.sessionOf = customerID
	return "https://billing.stripe.com/p/session/" + customerID, nil
}

func TestBillingService_ReusesLinkedCustomer(t *testing.T) {
	portal := &fakePortal{}
	svc := BillingService{Customers: &memCustomers{links: map[string]string{"u1": "cus_1"}}, Portal: portal}

	url, err := svc.OpenPortal(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/cus_1", url)
	assert.Empty(t, portal.lookups)
}

func TestBillingService_FindsAndLinksCustomer(t *testing.T) {
	customers := &memCustomers{links: map[string]string{}}
	portal := &fakePortal{}
	svc := BillingService{Customers: customers, Portal: portal}

	_, err := svc.OpenPortal(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrMissingEmail)

	url, err := svc.OpenPortal(context.Background(), "u1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/cus_new", url)
	assert.Equal(t, []string{"ada@example.com"}, portal.lookups)
	assert.Equal(t, "cus_new", customers.links["u1"])
}

func TestBillingService_Errors(t *testing.T) {
	_, err := BillingService{}.OpenPortal(context.Background(), "", "ada@example.com")
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = BillingService{}.OpenPortal(context.Background(), "u1", "ada@example.com")
	assert.ErrorIs(t, err, ErrBillingUnavailable)

	boom := errors.New("db down")
	svc := BillingService{Customers: &memCustomers{err: boom}, Portal: &fakePortal{}}
	_, err = svc.OpenPortal(context.Background(), "u1", "ada@example.com")
	assert.ErrorIs(t, err, boom)
}
