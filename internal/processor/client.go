package processor

import (
	"context"
	"strconv"

	"PhoneStore/internal/pricing"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CatalogProductKey carries the catalog product id in processor product metadata.
const CatalogProductKey = "productId"

// customerUserKey tags processor customers with the storefront user id.
const customerUserKey = "userId"

type Client struct {
	API              *client.API
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	PortalReturnURL  string
}

func NewClient(secretKey string) *Client {
	return &Client{API: client.New(secretKey, nil)}
}

// FetchSession re-reads a session with its line items and their products,
// which webhook payloads omit.
func (c *Client) FetchSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	return c.API.CheckoutSessions.Get(sessionID, params)
}

// CreateSession opens a hosted checkout for quote. The buyer id travels in
// both session and payment intent metadata under the canonical userId key.
func (c *Client) CreateSession(ctx context.Context, userID, email string, quote pricing.Quote) (*stripe.CheckoutSession, error) {
	metadata := map[string]string{
		"userId": userID,
		"items":  strconv.Itoa(len(quote.Lines)),
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(l.Product.Name),
			Metadata: map[string]string{CatalogProductKey: l.Product.ProductID},
		}
		if l.Product.Description != "" {
			productData.Description = stripe.String(l.Product.Description)
		}
		if l.Product.Image != "" {
			productData.Images = stripe.StringSlice([]string{l.Product.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(quote.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(l.UnitMinor),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(c.SuccessURL),
		CancelURL:         stripe.String(c.CancelURL),
		ClientReferenceID: stripe.String(userID),
		CustomerCreation:  stripe.String("always"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	if len(c.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(c.AllowedCountries),
		}
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	return c.API.CheckoutSessions.New(params)
}

// FindOrCreateCustomer returns the first customer with email, creating one
// tagged with userID when none exists.
func (c *Client) FindOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	list := &stripe.CustomerListParams{Email: stripe.String(email)}
	list.Context = ctx
	list.Limit = stripe.Int64(1)
	it := c.API.Customers.List(list)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", err
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(customerUserKey, userID)
	cus, err := c.API.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (c *Client) PortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.PortalReturnURL),
	}
	params.Context = ctx
	sess, err := c.API.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
