package payments

import "PhoneStore/internal/models"

// MapShipping returns nil when no shipping object was collected. A present
// object always yields an address, with blank sub-fields left empty.
func MapShipping(s *models.ShippingDetails) *models.Address {
	if s == nil {
		return nil
	}
	addr := flatten(s.Address)
	addr.Name = s.Name
	return addr
}

// MapBilling returns nil when the billing details carry no address object.
func MapBilling(b *models.BillingDetails) *models.Address {
	if b == nil || b.Address == nil {
		return nil
	}
	addr := flatten(b.Address)
	addr.Name = b.Name
	return addr
}

func flatten(p *models.PostalAddress) *models.Address {
	if p == nil {
		return &models.Address{}
	}
	return &models.Address{
		Address:      p.Line1,
		AddressLine2: p.Line2,
		City:         p.City,
		State:        p.State,
		PostalCode:   p.PostalCode,
		Country:      p.Country,
	}
}
