package processor

import (
	"PhoneStore/internal/models"

	"github.com/stripe/stripe-go/v76"
)

// PaymentID keys a checkout session by its payment intent, the same id the
// payment document trigger uses. Sessions without one fall back to their own id.
func PaymentID(s *stripe.CheckoutSession) string {
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		return s.PaymentIntent.ID
	}
	return s.ID
}

// CustomerID returns the processor customer a session was paid by, empty for
// guest checkouts.
func CustomerID(s *stripe.CheckoutSession) string {
	if s.Customer == nil {
		return ""
	}
	return s.Customer.ID
}

// CatalogProductID returns the catalog id stamped on a checkout product by
// CreateSession. Products created elsewhere keep their processor id.
func CatalogProductID(p *stripe.Product) string {
	if id := p.Metadata[CatalogProductKey]; id != "" {
		return id
	}
	return p.ID
}

// SessionRecord maps a checkout session to a payment record. The status is
// succeeded only once the session reports payment_status=paid.
func SessionRecord(s *stripe.CheckoutSession) models.PaymentRecord {
	rec := models.PaymentRecord{
		ID:           PaymentID(s),
		Status:       string(s.PaymentStatus),
		AmountTotal:  s.AmountTotal,
		Currency:     string(s.Currency),
		Metadata:     s.Metadata,
		ReceiptEmail: s.CustomerEmail,
	}
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		rec.Status = models.PaymentSucceeded
	}
	if len(s.PaymentMethodTypes) == 1 {
		rec.PaymentMethod = s.PaymentMethodTypes[0]
	}

	if s.LineItems != nil {
		rec.LineItems = make([]models.LineItem, 0, len(s.LineItems.Data))
		for _, li := range s.LineItems.Data {
			if li == nil {
				continue
			}
			item := models.LineItem{
				Description: li.Description,
				AmountTotal: li.AmountTotal,
				Quantity:    li.Quantity,
			}
			if li.Price != nil && li.Price.Product != nil {
				p := li.Price.Product
				item.Product = &models.LineProduct{ID: CatalogProductID(p), Description: p.Description}
				if len(p.Images) > 0 {
					item.Product.Image = p.Images[0]
				}
			}
			rec.LineItems = append(rec.LineItems, item)
		}
	}

	if sd := s.ShippingDetails; sd != nil {
		rec.Shipping = &models.ShippingDetails{
			Name:    sd.Name,
			Phone:   sd.Phone,
			Address: postalAddress(sd.Address),
		}
	}
	if cd := s.CustomerDetails; cd != nil {
		rec.Customer = &models.CustomerDetails{Name: cd.Name, Email: cd.Email, Phone: cd.Phone}
		if cd.Address != nil {
			rec.Billing = &models.BillingDetails{
				Name:    cd.Name,
				Email:   cd.Email,
				Phone:   cd.Phone,
				Address: postalAddress(cd.Address),
			}
		}
	}
	return rec
}

func postalAddress(a *stripe.Address) *models.PostalAddress {
	if a == nil {
		return nil
	}
	return &models.PostalAddress{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
