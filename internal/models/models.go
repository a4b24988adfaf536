package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
)

var nextStatus = map[OrderStatus]OrderStatus{
	OrderPaid:       OrderProcessing,
	OrderProcessing: OrderShipped,
	OrderShipped:    OrderDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPaid, OrderProcessing, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is the single fulfillment step after s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	n, ok := nextStatus[s]
	return ok && n == next
}

type Order struct {
	OrderID         string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	TotalMinor      int64           `json:"totalMinor"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	PaymentID       string          `json:"paymentId"`
	ShippingAddress *Address        `json:"shippingAddress"`
	BillingAddress  *Address        `json:"billingAddress"`
	Phone           string          `json:"phone,omitempty"`
	Email           string          `json:"email,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderItem is captured at purchase time and never re-synced with the catalog.
type OrderItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

type Address struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

type Product struct {
	ProductID   string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	PriceMinor  int64           `json:"-"`
	Image       string          `json:"image"`
	Features    []string        `json:"features"`
	Category    string          `json:"category,omitempty"`
	Stock       int64           `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

const PaymentSucceeded = "succeeded"

// PaymentRecord is one payment attempt as reported by the processor. It is
// read-only here; the payments table only mirrors it.
type PaymentRecord struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	AmountTotal   int64             `json:"amountTotal"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LineItems     []LineItem        `json:"lineItems,omitempty"`
	Shipping      *ShippingDetails  `json:"shipping,omitempty"`
	Billing       *BillingDetails   `json:"billing,omitempty"`
	Customer      *CustomerDetails  `json:"customer,omitempty"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
	ReceiptEmail  string            `json:"receiptEmail,omitempty"`
}

type LineItem struct {
	Description string       `json:"description"`
	AmountTotal int64        `json:"amountTotal"`
	Quantity    int64        `json:"quantity"`
	Product     *LineProduct `json:"product,omitempty"`
}

type LineProduct struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type PostalAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type ShippingDetails struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone,omitempty"`
	Address *PostalAddress `json:"address,omitempty"`
}

type BillingDetails struct {
	Name    string         `json:"name,omitempty"`
	Email   string         `json:"email,omitempty"`
	Phone   string         `json:"phone,omitempty"`
	Address *PostalAddress `json:"address,omitempty"`
}

type CustomerDetails struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PaymentChange is one before/after notification for a payment document.
// Before is nil when the document did not exist before the change.
type PaymentChange struct {
	PaymentID string
	Before    *PaymentRecord
	After     PaymentRecord
}
