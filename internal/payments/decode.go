package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"PhoneStore/internal/models"
)

var ErrMalformedRecord = errors.New("payment record is not a json object")

// document is a loosely typed payment document. Every accessor degrades to the
// zero value when the key is missing or holds an unexpected type.
type document map[string]json.RawMessage

func parseDocument(raw []byte) (document, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return d, true
}

func (d document) str(key string) string {
	var s string
	if err := json.Unmarshal(d[key], &s); err != nil {
		return ""
	}
	return s
}

func (d document) int(key string) int64 {
	var n json.Number
	if err := json.Unmarshal(d[key], &n); err != nil {
		return 0
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func (d document) obj(key string) (document, bool) {
	raw, ok := d[key]
	if !ok {
		return nil, false
	}
	return parseDocument(raw)
}

// DecodeRecord reads a processor payment document. Only a payload that is not
// a JSON object is rejected; malformed nested fields decode as absent.
func DecodeRecord(raw []byte) (models.PaymentRecord, error) {
	d, ok := parseDocument(raw)
	if !ok {
		return models.PaymentRecord{}, ErrMalformedRecord
	}

	rec := models.PaymentRecord{
		ID:           d.str("id"),
		Status:       d.str("status"),
		AmountTotal:  d.int("amount_total"),
		Currency:     d.str("currency"),
		Metadata:     decodeMetadata(d),
		LineItems:    decodeLineItems(d),
		ReceiptEmail: d.str("receipt_email"),
	}

	if s, ok := d.obj("shipping"); ok {
		rec.Shipping = &models.ShippingDetails{
			Name:    s.str("name"),
			Phone:   s.str("phone"),
			Address: decodeAddress(s),
		}
	}
	if b, ok := d.obj("billing_details"); ok {
		rec.Billing = &models.BillingDetails{
			Name:    b.str("name"),
			Email:   b.str("email"),
			Phone:   b.str("phone"),
			Address: decodeAddress(b),
		}
	}
	if c, ok := d.obj("customer_details"); ok {
		rec.Customer = &models.CustomerDetails{
			Name:  c.str("name"),
			Email: c.str("email"),
			Phone: c.str("phone"),
		}
	}
	if pm, ok := d.obj("payment_method_details"); ok {
		rec.PaymentMethod = pm.str("type")
	}
	return rec, nil
}

func decodeMetadata(d document) map[string]string {
	m, ok := d.obj("metadata")
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k := range m {
		if v := m.str(k); v != "" {
			out[k] = v
		}
	}
	return out
}

func decodeAddress(d document) *models.PostalAddress {
	a, ok := d.obj("address")
	if !ok {
		return nil
	}
	return &models.PostalAddress{
		Line1:      a.str("line1"),
		Line2:      a.str("line2"),
		City:       a.str("city"),
		State:      a.str("state"),
		PostalCode: a.str("postal_code"),
		Country:    a.str("country"),
	}
}

func decodeLineItems(d document) []models.LineItem {
	list, ok := d.obj("line_items")
	if !ok {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(list["data"], &raws); err != nil {
		return nil
	}
	out := make([]models.LineItem, 0, len(raws))
	for _, raw := range raws {
		li, ok := parseDocument(raw)
		if !ok {
			continue
		}
		out = append(out, models.LineItem{
			Description: li.str("description"),
			AmountTotal: li.int("amount_total"),
			Quantity:    li.int("quantity"),
			Product:     decodeLineProduct(li),
		})
	}
	return out
}

// catalogProductKey is the product metadata key checkout stamps with the
// catalog id.
const catalogProductKey = "productId"

// price.product is either a product id or the expanded product object.
func decodeLineProduct(li document) *models.LineProduct {
	price, ok := li.obj("price")
	if !ok {
		return nil
	}
	if id := price.str("product"); id != "" {
		return &models.LineProduct{ID: id}
	}
	p, ok := price.obj("product")
	if !ok {
		return nil
	}
	lp := &models.LineProduct{ID: p.str("id"), Description: p.str("description")}
	if md, ok := p.obj("metadata"); ok {
		if id := md.str(catalogProductKey); id != "" {
			lp.ID = id
		}
	}
	var images []string
	if err := json.Unmarshal(p["images"], &images); err == nil && len(images) > 0 {
		lp.Image = images[0]
	}
	return lp
}
